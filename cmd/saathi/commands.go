package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/spf13/cobra"

	"github.com/nilay/saathi/internal/config"
)

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to the companion",
	Long: `Talk to the companion.

With a message argument, sends it and prints the reply. Without
arguments, starts an interactive session (exit with Ctrl-D or /quit).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if len(args) > 0 {
			return sendChat(cmd, client, strings.Join(args, " "))
		}

		fmt.Fprintln(os.Stderr, "Interactive session. Ctrl-D or /quit to leave.")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Fprint(os.Stderr, "> ")
			if !scanner.Scan() {
				fmt.Fprintln(os.Stderr)
				return scanner.Err()
			}
			line := scanner.Text()
			if strings.TrimSpace(line) == "/quit" {
				return nil
			}
			if err := sendChat(cmd, client, line); err != nil {
				printError("%v", err)
			}
		}
	},
}

func sendChat(cmd *cobra.Command, client *apiClient, message string) error {
	resp, err := client.post(cmd.Context(), "/chat", map[string]string{"message": message})
	if err != nil {
		return err
	}

	var result map[string]string
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}

	fmt.Println(result["reply"])
	return nil
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update the user profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/profile")
		if err != nil {
			return err
		}

		var profile any
		if err := decodeJSON(resp, &profile); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set a profile field (name, gender, city, country, timezone)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, value := args[0], args[1]

		var body map[string]any
		switch field {
		case "name", "gender":
			body = map[string]any{field: value}
		case "city", "country", "timezone":
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			resp, err := client.get(cmd.Context(), "/profile")
			if err != nil {
				return err
			}
			var current struct {
				Location map[string]string `json:"location"`
			}
			if err := decodeJSON(resp, &current); err != nil {
				return err
			}
			if current.Location == nil {
				current.Location = map[string]string{}
			}
			current.Location[field] = value
			body = map[string]any{"location": current.Location}
		default:
			return fmt.Errorf("unknown profile field %q (valid: name, gender, city, country, timezone)", field)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.patch(cmd.Context(), "/profile", body)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Set %s = %s", field, value)
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the retained conversation transcript",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/history?limit=%d", limit))
		if err != nil {
			return err
		}

		var turns []struct {
			User string `json:"user"`
			Bot  string `json:"bot"`
		}
		if err := decodeJSON(resp, &turns); err != nil {
			return err
		}

		if len(turns) == 0 {
			fmt.Println("No conversation yet.")
			return nil
		}

		for _, t := range turns {
			fmt.Printf("%s %s\n", colorize(colorBold, "You:"), t.User)
			fmt.Printf("%s %s\n", colorize(colorCyan, "Bot:"), t.Bot)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 8, "maximum number of turns to show")
}

// --- log ---

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List recently handled turns from the interaction log",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/interactions?limit=%d", limit))
		if err != nil {
			return err
		}

		var interactions []struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			UserText  string `json:"user_text"`
			Route     string `json:"route"`
			LatencyMs int64  `json:"latency_ms"`
		}
		if err := decodeJSON(resp, &interactions); err != nil {
			return err
		}

		if len(interactions) == 0 {
			fmt.Println("No interactions recorded.")
			return nil
		}

		for _, ix := range interactions {
			text := ix.UserText
			if len(text) > 80 {
				text = text[:80] + "..."
			}
			fmt.Printf("%s  %s  %-15s %4dms  %s\n",
				colorize(colorCyan, ix.ID[:8]),
				ix.CreatedAt,
				ix.Route,
				ix.LatencyMs,
				text,
			)
		}
		return nil
	},
}

func init() {
	logCmd.Flags().Int("limit", 20, "maximum number of entries to list")
}

// --- note ---

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage standing notes woven into replies",
}

var noteAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Remember a standing note",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/notes", map[string]string{
			"content": content,
			"source":  "cli",
		})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Remembered note %s", result["id"])
		return nil
	},
}

var noteImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a text or PDF file as a standing note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		var content string
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			text, err := extractPDFText(path)
			if err != nil {
				return fmt.Errorf("extracting PDF text: %w", err)
			}
			content = text
		} else {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			content = string(data)
		}

		content = strings.TrimSpace(content)
		if content == "" {
			return fmt.Errorf("no text content found in %s", path)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/notes", map[string]string{
			"content": content,
			"source":  "import:" + filepath.Base(path),
		})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Imported %s as note %s", path, result["id"])
		return nil
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List standing notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/notes?limit=%d", limit))
		if err != nil {
			return err
		}

		var notes []struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Source    string `json:"source"`
			Content   string `json:"content"`
		}
		if err := decodeJSON(resp, &notes); err != nil {
			return err
		}

		if len(notes) == 0 {
			fmt.Println("No notes stored.")
			return nil
		}

		for _, n := range notes {
			content := n.Content
			if len(content) > 100 {
				content = content[:100] + "..."
			}
			fmt.Printf("%s  %s  [%s]\n  %s\n",
				colorize(colorCyan, n.ID[:8]),
				n.CreatedAt,
				n.Source,
				content,
			)
		}
		return nil
	},
}

func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func init() {
	noteListCmd.Flags().Int("limit", 20, "maximum number of notes to list")
	noteCmd.AddCommand(noteAddCmd)
	noteCmd.AddCommand(noteImportCmd)
	noteCmd.AddCommand(noteListCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
