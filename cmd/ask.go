package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/scene-clarify/internal/dialogue"
	"github.com/ziadkadry99/scene-clarify/internal/extractor"
)

var (
	askScene string
	askImage string
	askMode  string
	askJSON  bool
)

// typeOwn is the extra choice that lets the user answer in their own words.
const typeOwn = "Something else (type it)"

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about an image",
	Long: `Answers a question about a scene. The scene comes from --scene (a scene JSON
file, "-" for stdin) or is extracted from --image. In one_pass mode the answer
is printed once. In iterative mode clarify asks which thing you mean whenever
the question is ambiguous and keeps going until you leave an empty question.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if askScene == "" && askImage == "" {
			return fmt.Errorf("one of --scene or --image is required")
		}
		mode := dialogue.Mode(askMode)
		if mode != dialogue.ModeOnePass && mode != dialogue.ModeIterative {
			return fmt.Errorf("unknown mode %q (want one_pass or iterative)", askMode)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		sceneJSON, imageDataURL, err := loadAskScene(ctx, a)
		if err != nil {
			return err
		}

		question := ""
		if len(args) == 1 {
			question = args[0]
		}

		if mode == dialogue.ModeOnePass {
			if question == "" {
				return fmt.Errorf("a question is required in one_pass mode")
			}
			resp, err := a.svc.Turn(ctx, dialogue.TurnRequest{
				Mode:          mode,
				Question:      question,
				SceneJSONText: sceneJSON,
				ImageDataURL:  imageDataURL,
			})
			if err != nil {
				return err
			}
			return printTurn(resp)
		}

		return runDialogue(ctx, a.svc, sceneJSON, imageDataURL, question)
	},
}

func loadAskScene(ctx context.Context, a *app) (sceneJSON, imageDataURL string, err error) {
	if askImage != "" {
		img, err := extractor.LoadImage(askImage)
		if err != nil {
			return "", "", err
		}
		imageDataURL = img.DataURL()
		if askScene == "" {
			fmt.Fprintln(os.Stderr, "Extracting scene...")
			sceneJSON, err = a.extractor.Extract(ctx, img)
			return sceneJSON, imageDataURL, err
		}
	}
	sceneJSON, err = readSceneFile(askScene)
	return sceneJSON, imageDataURL, err
}

// runDialogue drives an iterative session from the terminal.
func runDialogue(ctx context.Context, svc *dialogue.Service, sceneJSON, imageDataURL, question string) error {
	sess, err := svc.StartSession(ctx, sceneJSON, imageDataURL)
	if err != nil {
		return err
	}
	defer svc.EndSession(context.Background(), sess.ID)

	req := dialogue.TurnRequest{Mode: dialogue.ModeIterative, SessionID: sess.ID, Question: question}
	for {
		if req.Question == "" && req.OptionID == "" && req.Clarification == "" {
			q, err := (&promptui.Prompt{Label: "Question (empty to quit)"}).Run()
			if err != nil || strings.TrimSpace(q) == "" {
				return nil
			}
			req.Question = strings.TrimSpace(q)
		}

		resp, err := svc.Turn(ctx, req)
		switch {
		case errors.Is(err, dialogue.ErrTurnLimit):
			fmt.Println("Turn limit reached for this image.")
			return nil
		case err != nil:
			return err
		}
		if err := printTurn(resp); err != nil {
			return err
		}

		req = dialogue.TurnRequest{Mode: dialogue.ModeIterative, SessionID: sess.ID}
		if len(resp.Options) == 0 {
			continue
		}

		labels := make([]string, 0, len(resp.Options)+1)
		for _, o := range resp.Options {
			labels = append(labels, o.Label)
		}
		labels = append(labels, typeOwn)
		idx, _, err := (&promptui.Select{Label: resp.FollowUpQuestion, Items: labels}).Run()
		if err != nil {
			return nil
		}
		if idx < len(resp.Options) {
			if dialogue.IsDone(resp.Options[idx].Pick) {
				return nil
			}
			req.OptionID = resp.Options[idx].ID
			continue
		}
		text, err := (&promptui.Prompt{Label: "Which one"}).Run()
		if err != nil {
			return nil
		}
		req.Clarification = strings.TrimSpace(text)
	}
}

func printTurn(resp *dialogue.TurnResponse) error {
	if askJSON {
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	fmt.Println(resp.Answer)
	if resp.AmbiguityNote != "" {
		fmt.Printf("(%s)\n", resp.AmbiguityNote)
	}
	if resp.Count != nil {
		approx := ""
		if resp.Count.Approximate {
			approx = " (approximate)"
		}
		fmt.Printf("Count: %d%s\n", resp.Count.Value, approx)
	}
	// With options, the follow-up becomes the selection prompt.
	if resp.FollowUpQuestion != "" && len(resp.Options) == 0 {
		fmt.Println(resp.FollowUpQuestion)
	}
	return nil
}

func init() {
	askCmd.Flags().StringVar(&askScene, "scene", "", `scene JSON file ("-" for stdin)`)
	askCmd.Flags().StringVar(&askImage, "image", "", "image to extract the scene from or send along for counting")
	askCmd.Flags().StringVar(&askMode, "mode", string(dialogue.ModeIterative), "one_pass or iterative")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print raw turn responses as JSON")
	rootCmd.AddCommand(askCmd)
}
