package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/wa-outreach/internal/message"
	"github.com/sells-group/wa-outreach/internal/model"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Work with the named message template library",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List template names",
	RunE: func(cmd *cobra.Command, _ []string) error {
		lib, err := message.LoadLibrary(cfg.Outreach.TemplatesFile)
		if err != nil {
			return err
		}
		for _, name := range lib.Names() {
			fmt.Fprintln(os.Stdout, name)
		}
		return nil
	},
}

var (
	previewName     string
	previewBusiness string
	previewAddress  string
)

var templatesPreviewCmd = &cobra.Command{
	Use:   "preview <template-name>",
	Short: "Render a template against a sample lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := message.LoadLibrary(cfg.Outreach.TemplatesFile)
		if err != nil {
			return err
		}
		body, err := lib.Get(args[0])
		if err != nil {
			return err
		}
		lead := model.Lead{Name: previewName, BusinessName: previewBusiness, Address: previewAddress}
		fmt.Fprintln(os.Stdout, message.Render(body, lead))
		return nil
	},
}

// resolveMessage picks the message body for a send: an inline text wins over
// a named template from the library at path.
func resolveMessage(text, templateName, path string) (string, error) {
	if text != "" || templateName == "" {
		return text, nil
	}
	lib, err := message.LoadLibrary(path)
	if err != nil {
		return "", err
	}
	return lib.Get(templateName)
}

func init() {
	templatesPreviewCmd.Flags().StringVar(&previewName, "name", "Ana", "sample contact name")
	templatesPreviewCmd.Flags().StringVar(&previewBusiness, "business", "Acme", "sample business name")
	templatesPreviewCmd.Flags().StringVar(&previewAddress, "address", "Rua Augusta 1, Lisboa, LX 1100", "sample address")

	templatesCmd.AddCommand(templatesListCmd, templatesPreviewCmd)
	rootCmd.AddCommand(templatesCmd)
}
