package commands

import (
	"github.com/spf13/cobra"

	"github.com/scribefs/scribefs/pkg/config"
	"github.com/scribefs/scribefs/pkg/storagenode"
)

var storagenodeID string

var storagenodeCmd = &cobra.Command{
	Use:   "storagenode",
	Short: "Run a storage node",
	Long: `Run a ScribeFS storage node.

The storage node holds file content, metadata, access lists, undo
history, and checkpoints. It serves clients on one port, name node
control commands on another, and keeps itself registered with the name
node over a heartbeat session.

Examples:
  # Run with the node id from the config file
  scribefs storagenode

  # Run with an explicit node id
  scribefs storagenode --id ss-1

  # Run with the BadgerDB blob store
  SCRIBEFS_STORAGENODE_BACKEND=badger scribefs storagenode --id ss-2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNode("storagenode", func(cfg *config.Config) (service, error) {
			if storagenodeID != "" {
				cfg.StorageNode.ID = storagenodeID
			}
			svc, err := storagenode.NewService(cfg)
			if err != nil {
				return nil, err
			}
			return svc, nil
		})
	},
}

func init() {
	storagenodeCmd.Flags().StringVar(&storagenodeID, "id", "", "storage node id (overrides the config file)")
}
