// ABOUTME: Admin CLI for csgw-server account lifecycle management
// ABOUTME: Talks to internal/adminapi over JSON-over-HTTP with a bearer token

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
)

const banner = `
  ___ ___  __ ___      __        __ _  __| |_ __ ___ (_)_ __
 / __/ __|/ _' \ \ /\ / /______ / _' |/ _' | '_ ' _ \| | '_ \
| (__\__ \ (_| |\ V  V /______| (_| | (_| | | | | | | | | | |
 \___|___/\__, | \_/\_/        \__,_|\__,_|_| |_| |_|_|_| |_|
             |_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	addr := os.Getenv("CSGW_ADMIN_ADDR")
	if addr == "" {
		addr = "localhost:8090"
	}
	token := os.Getenv("CSGW_TOKEN")

	client := &adminClient{baseURL: "http://" + addr, token: token}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "sessions":
		err = cmdSessions(client)
	case "start":
		err = cmdStart(client, args)
	case "stop":
		err = cmdStop(client, args)
	case "start-all":
		err = cmdStartAll(client, args)
	case "stop-all":
		err = cmdStopAll(client)
	case "set-presence":
		err = cmdSetPresence(client, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: csgw-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  sessions                               List running account sessions")
	fmt.Println("  start <channel> <shop_id> <account_id>  Start one account")
	fmt.Println("  stop <channel> <shop_id> <account_id>   Stop one account")
	fmt.Println("  start-all [channel]                     Start every eligible account")
	fmt.Println("  stop-all                                Stop every running account")
	fmt.Println("  set-presence <channel> <shop_id> <account_id> <presence>")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  CSGW_ADMIN_ADDR   Admin surface address (default: localhost:8090)")
	fmt.Println("  CSGW_TOKEN        Bearer JWT for authentication (required)")
	fmt.Println()
}

type adminClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func (c *adminClient) do(method, path string, body any, out any) error {
	hc := c.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("calling admin surface: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("admin surface returned status %d: %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type accountRef struct {
	Channel       string `json:"channel"`
	ShopID        string `json:"shop_id"`
	AccountUserID string `json:"account_user_id"`
}

func cmdSessions(c *adminClient) error {
	var resp struct {
		Running []string `json:"running"`
	}
	if err := c.do(http.MethodGet, "/sessions", nil, &resp); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT")
	for _, key := range resp.Running {
		fmt.Fprintln(w, key)
	}
	return w.Flush()
}

func cmdStart(c *adminClient, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: csgw-admin start <channel> <shop_id> <account_id>")
	}
	ref := accountRef{Channel: args[0], ShopID: args[1], AccountUserID: args[2]}
	if err := c.do(http.MethodPost, "/accounts/start", ref, nil); err != nil {
		return err
	}
	color.Green("started %s:%s:%s\n", ref.Channel, ref.ShopID, ref.AccountUserID)
	return nil
}

func cmdStop(c *adminClient, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: csgw-admin stop <channel> <shop_id> <account_id>")
	}
	ref := accountRef{Channel: args[0], ShopID: args[1], AccountUserID: args[2]}
	if err := c.do(http.MethodPost, "/accounts/stop", ref, nil); err != nil {
		return err
	}
	color.Green("stopped %s:%s:%s\n", ref.Channel, ref.ShopID, ref.AccountUserID)
	return nil
}

func cmdStartAll(c *adminClient, args []string) error {
	var channel string
	if len(args) > 0 {
		channel = args[0]
	}
	body := struct {
		Channel string `json:"channel"`
	}{Channel: channel}
	if err := c.do(http.MethodPost, "/accounts/start-all-eligible", body, nil); err != nil {
		return err
	}
	color.Green("started all eligible accounts\n")
	return nil
}

func cmdStopAll(c *adminClient) error {
	if err := c.do(http.MethodPost, "/accounts/stop-all", nil, nil); err != nil {
		return err
	}
	color.Green("stopped all accounts\n")
	return nil
}

func cmdSetPresence(c *adminClient, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: csgw-admin set-presence <channel> <shop_id> <account_id> <presence>")
	}
	body := struct {
		accountRef
		Presence string `json:"presence"`
	}{
		accountRef: accountRef{Channel: args[0], ShopID: args[1], AccountUserID: args[2]},
		Presence:   args[3],
	}
	if err := c.do(http.MethodPost, "/accounts/set-presence", body, nil); err != nil {
		return err
	}
	color.Green("set presence for %s:%s:%s to %s\n", args[0], args[1], args[2], args[3])
	return nil
}
