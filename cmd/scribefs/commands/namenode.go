package commands

import (
	"github.com/spf13/cobra"

	"github.com/scribefs/scribefs/pkg/config"
	"github.com/scribefs/scribefs/pkg/namenode"
)

var namenodeCmd = &cobra.Command{
	Use:   "namenode",
	Short: "Run the name node",
	Long: `Run the ScribeFS name node.

The name node coordinates the cluster: it tracks storage nodes and
users, places new files, redirects content operations, arbitrates
sentence locks, queues access requests, and detects node failures.

Examples:
  # Run with default config location
  scribefs namenode

  # Run with custom config
  scribefs namenode --config /etc/scribefs/config.yaml

  # Override the listen port via environment
  SCRIBEFS_NAMENODE_PORT=5050 scribefs namenode`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNode("namenode", func(cfg *config.Config) (service, error) {
			svc, err := namenode.NewService(cfg)
			if err != nil {
				return nil, err
			}
			return svc, nil
		})
	},
}
