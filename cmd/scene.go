package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/scene-clarify/internal/extractor"
	"github.com/ziadkadry99/scene-clarify/internal/progress"
)

var (
	sceneGlob        string
	sceneConcurrency int
	sceneWrite       bool
)

var sceneCmd = &cobra.Command{
	Use:   "scene [image]",
	Short: "Describe images as scene JSON",
	Long: `Runs the vision model over one image and prints its scene JSON, or over every
image matching --glob and writes photo.scene.json next to each photo.jpg.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (len(args) == 1) == (sceneGlob != "") {
			return fmt.Errorf("pass either an image path or --glob")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			img, err := extractor.LoadImage(args[0])
			if err != nil {
				return err
			}
			sceneJSON, err := a.extractor.Extract(ctx, img)
			if err != nil {
				return err
			}
			if sceneWrite {
				return writeScene(args[0], sceneJSON)
			}
			fmt.Println(sceneJSON)
			return nil
		}

		paths, err := extractor.Glob(sceneGlob)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no images match %q", sceneGlob)
		}

		concurrency := sceneConcurrency
		if concurrency <= 0 {
			concurrency = a.cfg.MaxConcurrency
		}

		reporter := progress.NewReporter("Extracting scenes")
		reporter.Start(len(paths))
		result, err := a.extractor.ExtractFiles(ctx, paths, concurrency, func(done, total int, path string) {
			reporter.Update(done, path)
		})
		reporter.Finish()
		if err != nil {
			return err
		}

		for _, f := range result.Files {
			if f.Err != nil {
				logger.Warn("extraction failed", zap.String("path", f.Path), zap.Error(f.Err))
				continue
			}
			if err := writeScene(f.Path, f.SceneJSON); err != nil {
				return err
			}
		}

		fmt.Fprintf(os.Stderr, "%d scene(s) written, %d failed\n", len(result.Files)-result.Failed, result.Failed)
		if result.Failed > 0 {
			return fmt.Errorf("%d of %d images failed", result.Failed, len(result.Files))
		}
		return nil
	},
}

func writeScene(imagePath, sceneJSON string) error {
	out := extractor.SceneFileName(imagePath)
	if err := os.WriteFile(out, []byte(sceneJSON+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	logger.Debug("scene written", zap.String("path", out))
	return nil
}

func init() {
	sceneCmd.Flags().StringVar(&sceneGlob, "glob", "", "doublestar pattern of images to process, e.g. 'photos/**/*.jpg'")
	sceneCmd.Flags().IntVar(&sceneConcurrency, "concurrency", 0, "parallel extractions (default from max_concurrency)")
	sceneCmd.Flags().BoolVarP(&sceneWrite, "write", "w", false, "write the scene next to the image instead of printing it")
	rootCmd.AddCommand(sceneCmd)
}
