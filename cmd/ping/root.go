package ping

import (
	"fmt"
	"github.com/ValentinKolb/dLoad/cmd/util"
	"github.com/ValentinKolb/dLoad/lib/loader"
	"github.com/spf13/cobra"
)

// PingCmd tests the connection to the configured store
var PingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the connection to a store",
	Long: `Connects with the configured parameters and reads one document of the
probe collection. Nothing is written. The exit status reflects the result.`,
	PreRunE: util.BindCommandFlags,
	RunE:    run,
}

func init() {
	util.SetupConnectionFlags(PingCmd)
}

func run(cmd *cobra.Command, _ []string) error {
	cfg := util.GetLoadConfig()

	s, err := util.GetStore(cfg)
	if err != nil {
		return err
	}

	// no factory is needed to test the connection
	p := loader.New(cfg, s, nil)
	if err := p.TestConnection(cmd.Context()); err != nil {
		return err
	}

	fmt.Printf("connection to %s store ok (database %s)\n", s.Name(), cfg.TargetDB)
	return nil
}
