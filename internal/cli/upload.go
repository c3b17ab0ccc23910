package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	uploadMimeType string
	uploadDuration float64
	uploadNoWatch  bool
)

// mimeByExtension maps file extensions to the mime types the server accepts.
var mimeByExtension = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/x-m4a",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
}

var uploadCmd = &cobra.Command{
	Use:   "upload <profile-id> <file>",
	Short: "Upload a media file and extract memories from it",
	Long: `Upload a media file for a profile and queue it for memory extraction.

The mime type is derived from the file extension; override it with --mime.
Audio and video files need --duration (seconds).

Examples:
  heirloom upload grandma letters/1962.txt
  heirloom upload grandma wedding.jpg
  heirloom upload grandma interview.mp3 --duration 1834.5`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadMimeType, "mime", "", "mime type (default derived from extension)")
	uploadCmd.Flags().Float64Var(&uploadDuration, "duration", 0, "media duration in seconds (audio/video)")
	uploadCmd.Flags().BoolVar(&uploadNoWatch, "no-watch", false, "do not wait for the extraction job")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	profileID, path := args[0], args[1]

	mimeType := uploadMimeType
	if mimeType == "" {
		ext := strings.ToLower(filepath.Ext(path))
		mimeType = mimeByExtension[ext]
		if mimeType == "" {
			return fmt.Errorf("cannot derive mime type for %q, pass --mime", ext)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	slot, err := apiClient.InitUpload(ctx, profileID, filepath.Base(path), mimeType, info.Size())
	if err != nil {
		return fmt.Errorf("init upload: %w", err)
	}

	fmt.Printf("Uploading %s (%d bytes)...\n", filepath.Base(path), info.Size())
	if err := apiClient.PutObject(ctx, slot.UploadURL, mimeType, f, info.Size()); err != nil {
		return err
	}

	var duration *float64
	if cmd.Flags().Changed("duration") {
		duration = &uploadDuration
	}

	confirm, err := apiClient.ConfirmUpload(ctx, profileID, slot.ObjectKey, filepath.Base(path), mimeType, duration)
	if err != nil {
		return fmt.Errorf("confirm upload: %w", err)
	}

	fmt.Printf("Asset %s queued as job %s\n", confirm.MediaAssetID, confirm.JobID)
	if uploadNoWatch {
		fmt.Printf("Use 'heirloom jobs %s' to check progress.\n", confirm.JobID)
		return nil
	}
	return RunJobWatch(apiClient, confirm.JobID)
}
