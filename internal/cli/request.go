package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/dfsbridge/internal/domain"
	"github.com/shaiso/dfsbridge/internal/sfs"
	"github.com/shaiso/dfsbridge/internal/storage"
)

// NewPendingCmd создаёт команду вывода запросов, ожидающих ответа.
func NewPendingCmd(envFn func() *Env, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List requests awaiting a registry reply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()
			out := outputFn()
			ctx := cmd.Context()

			store, closeStore, err := env.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			pending, err := storage.NewRequestDB(store).PendingRequests(ctx)
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(pending))
			for id := range pending {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			headers := []string{"REQUEST_ID", "EDR_ID", "TENDER_ID", "ITEM_ID"}
			rows := make([][]string, len(ids))
			for i, id := range ids {
				p := pending[id]
				rows[i] = []string{id, p.EDRID, p.TenderID, p.ItemID}
			}

			out.Print(headers, rows, pending)
			return nil
		},
	}
}

// NewSendRequestCmd создаёт команду ручной отправки XML-запроса в канал
// корреспонденции. Отправленный запрос регистрируется как ожидающий,
// и ReferenceStage начинает опрашивать ответ по нему.
func NewSendRequestCmd(envFn func() *Env, outputFn func() *Output) *cobra.Command {
	var (
		tenderID string
		itemID   string
		code     string
		name     string
		number   int
	)

	cmd := &cobra.Command{
		Use:   "send-request",
		Short: "Send a registry extract request for a supplier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()
			out := outputFn()
			ctx := cmd.Context()

			cfg, err := env.Config()
			if err != nil {
				return err
			}
			if cfg.SFS.BaseURL == "" {
				return errors.New("sfs.base_url is not configured")
			}
			if domain.IsCodeInvalid(code) {
				return fmt.Errorf("invalid code %q", code)
			}

			requestID := strings.ReplaceAll(uuid.NewString(), "-", "")
			data := domain.NewData(tenderID, itemID, code, domain.ItemKindAwards, requestID, "")
			if data.IsPhysical() {
				data.LastName, data.FirstName, data.FamilyName = domain.SplitPersonName(name)
			} else {
				data.CompanyName = name
			}

			payload, err := sfs.BuildRequest(data, number, time.Now())
			if err != nil {
				return err
			}

			client := sfs.NewClient(sfs.Config{
				Host:     cfg.SFS.BaseURL,
				User:     cfg.SFS.User,
				Password: cfg.SFS.Password,
				Timeout:  cfg.SFS.Timeout.Duration(),
			})
			if err := client.SendRequest(ctx, payload); err != nil {
				return err
			}

			store, closeStore, err := env.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			err = storage.NewRequestDB(store).AddPending(ctx, requestID, domain.PendingRequest{
				EDRID:    code,
				TenderID: tenderID,
				ItemID:   itemID,
			})
			if err != nil {
				return fmt.Errorf("request %s sent but not registered: %w", requestID, err)
			}

			out.Success(fmt.Sprintf("Request sent: %s", requestID))
			return nil
		},
	}

	cmd.Flags().StringVar(&tenderID, "tender", "", "Tender ID")
	cmd.Flags().StringVar(&itemID, "item", "", "Award ID")
	cmd.Flags().StringVar(&code, "code", "", "EDRPOU/INN code or passport")
	cmd.Flags().StringVar(&name, "name", "", "Company name or full person name")
	cmd.Flags().IntVar(&number, "number", 1, "Request number (HNUM)")
	cmd.MarkFlagRequired("tender")
	cmd.MarkFlagRequired("code")
	cmd.MarkFlagRequired("name")

	return cmd
}
