// DFS Bridge — мост между площадкой закупок и реестром налоговой службы.
//
// Бридж:
//   - Берёт ID тендеров из очереди filtered_tender_ids
//   - Отбирает awards в статусе pending и ставит коды поставщиков
//     в очередь edrpou_codes
//   - В рабочие часы опрашивает канал корреспонденции по отправленным
//     запросам и публикует ответы в очередь reference
//
// Использование:
//
//	dfs-bridge [--config FILE] [--json] <command>
package main

import (
	"fmt"
	"os"

	"github.com/shaiso/dfsbridge/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	if err := cli.NewRootCmd(version, &cli.Env{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
