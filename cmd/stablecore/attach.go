package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pkt.systems/pslog"

	"stablecore/internal/blob"
	"stablecore/internal/core"
)

func newAttachCmd() *cobra.Command {
	var cfgPath, body string
	cmd := &cobra.Command{
		Use:   "attach <file>",
		Short: "Upload an attachment and publish it as a feed post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := openService(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Store().Close() }()

			store, err := blob.Open(ctx)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			ext := filepath.Ext(args[0])
			key := fmt.Sprintf("posts/%s%s", uuid.NewString(), ext)
			info, err := store.Put(ctx, key, f, blob.PutOptions{
				ContentType: mime.TypeByExtension(ext),
			})
			if err != nil {
				return fmt.Errorf("store attachment: %w", err)
			}

			post, res := svc.CreatePost(ctx, core.CreatePostInput{
				Body:          body,
				AttachmentKey: info.Key,
			})
			if !res.Success {
				// The upload has no referencing post; remove it again.
				_, _ = store.Delete(ctx, info.Key)
				return fmt.Errorf("create post: %s", res.Reason)
			}

			pslog.Ctx(ctx).Info("attachment posted",
				"post", post.ID, "key", info.Key, "bytes", info.Size)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&body, "body", "", "post text to publish with the attachment")
	return cmd
}
