package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/dfsbridge/internal/mq"
	"github.com/shaiso/dfsbridge/internal/tracker"
)

// NewCheckTenderCmd создаёт команду проверки отметки processed_tender.
func NewCheckTenderCmd(envFn func() *Env, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "check-tender TENDER_ID",
		Short: "Show whether a tender is marked processed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()
			out := outputFn()
			ctx := cmd.Context()

			cfg, err := env.Config()
			if err != nil {
				return err
			}
			store, closeStore, err := env.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			t := tracker.New(tracker.Config{
				Store:  store,
				TTL:    cfg.Storage.TTL.Duration(),
				Logger: env.logger(),
			})
			processed, err := t.CheckProcessedTenders(ctx, args[0])
			if err != nil {
				return err
			}

			out.Fields(
				[][2]string{
					{"Tender", args[0]},
					{"Processed", strconv.FormatBool(processed)},
				},
				map[string]any{"tender_id": args[0], "processed": processed},
			)
			return nil
		},
	}
}

// NewEnqueueCmd создаёт команду публикации ID тендеров во входную
// очередь FilterStage. Требует queues.backend=amqp.
func NewEnqueueCmd(envFn func() *Env, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue TENDER_ID...",
		Short: "Publish tender IDs to the filtered_tender_ids queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()
			out := outputFn()
			ctx := cmd.Context()

			cfg, err := env.Config()
			if err != nil {
				return err
			}
			if cfg.Queues.Backend != "amqp" {
				return fmt.Errorf("enqueue requires queues.backend=amqp, got %q", cfg.Queues.Backend)
			}

			conn, err := mq.NewConnection(cfg.Queues.AMQPURL, env.logger())
			if err != nil {
				return fmt.Errorf("connect amqp: %w", err)
			}
			defer conn.Close()

			if err := mq.SetupTopology(ctx, conn); err != nil {
				return fmt.Errorf("setup topology: %w", err)
			}

			publisher := mq.NewPublisher(conn, env.logger())
			for _, tenderID := range args {
				if err := publisher.PublishJSON(ctx, mq.QueueFilteredTenderIDs, mq.MessageTypeTenderID, tenderID); err != nil {
					return fmt.Errorf("publish %s: %w", tenderID, err)
				}
				out.Success(fmt.Sprintf("Enqueued: %s", tenderID))
			}
			return nil
		},
	}
}
