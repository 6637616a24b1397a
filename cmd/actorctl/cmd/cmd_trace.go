package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/daviddao/actorkv/pkg/idfactory"
	"github.com/daviddao/actorkv/pkg/metrics"
	"github.com/daviddao/actorkv/pkg/trace"
)

var traceCmd = &cobra.Command{
	Use:   "trace <label>",
	Short: "Run a demo streaming-trace session and print its events as JSON lines.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := metrics.New(prometheus.NewRegistry())

		enc := json.NewEncoder(os.Stdout)
		sink := m.WrapTraceSink(func(e trace.StreamEvent) {
			_ = enc.Encode(e)
		})
		session := trace.NewSession(idfactory.UUIDFactory{}, sink, time.Now, map[string]string{"label": args[0]})

		span := session.NewChildSpan(nil)
		span.AddMark("start")
		span.AddLog("info", fmt.Sprintf("running %s", args[0]))
		span.SetOutcome(trace.OutcomeOK, nil)
		session.SetOutcome(trace.OutcomeOK, nil)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)
}
