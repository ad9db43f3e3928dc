// HomeHub CLI - thin client for the HomeHub HTTP API
//
// Lists devices as a table filtered to a per-type set of display
// fields, shows single-device detail, and dispatches actions. The
// --json flag bypasses all filtering and prints raw API responses.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const requestTimeout = 10 * time.Second

// overviewKeys is the per-type allow-list of display fields for table
// output. Nested keys are flattened with a dot, as in last_update.human.
var overviewKeys = map[string][]string{
	"zigbee_lamp":    {"battery", "name", "state", "brightness", "last_update.human"},
	"zigbee_switch":  {"battery", "name", "state", "last_update.human"},
	"zigbee_button":  {"battery", "name", "action", "last_update.human"},
	"zigbee_log":     {"battery", "name", "humidity", "pressure", "temperature", "last_update.human"},
	"lora_log":       {"battery_voltage", "name", "humidity", "temperature", "last_update.human"},
	"plug":           {"name", "relay", "power", "last_update.human"},
	"media_renderer": {"name", "status", "volume", "last_update.human"},
	"speaker_group":  {"name", "members", "volume", "last_update.human"},
	"fingerbot":      {"battery", "name", "last_update.human"},
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type client struct {
	baseURL string
	http    *http.Client
}

func main() {
	var (
		url        string
		printJSON  bool
		list       bool
		deviceName string
		action     string
		msg        string
	)

	flag.StringVar(&url, "u", os.Getenv("HOMEHUB_URL"), "HomeHub server URL (env: HOMEHUB_URL)")
	flag.StringVar(&url, "url", os.Getenv("HOMEHUB_URL"), "HomeHub server URL (env: HOMEHUB_URL)")
	flag.BoolVar(&printJSON, "j", false, "display output as JSON")
	flag.BoolVar(&printJSON, "json", false, "display output as JSON")
	flag.BoolVar(&list, "l", false, "list devices")
	flag.BoolVar(&list, "list", false, "list devices")
	flag.StringVar(&deviceName, "d", "", "device for detail view or action")
	flag.StringVar(&deviceName, "device", "", "device for detail view or action")
	flag.StringVar(&action, "a", "", "action to dispatch against the given device")
	flag.StringVar(&action, "action", "", "action to dispatch against the given device")
	flag.StringVar(&msg, "m", "", "action payload (JSON or plain value)")
	flag.StringVar(&msg, "msg", "", "action payload (JSON or plain value)")
	flag.Parse()

	if url == "" {
		fatal("server URL is required (-u or HOMEHUB_URL)")
	}
	if !list && deviceName == "" {
		fatal("-l/--list or -d/--device is required")
	}

	c := &client{
		baseURL: strings.TrimSuffix(url, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}

	switch {
	case list:
		c.listDevices(printJSON)
	case action != "":
		c.dispatchAction(deviceName, action, msg)
	default:
		c.deviceDetail(deviceName, printJSON)
	}
}

// listDevices fetches every device and renders one overview table, or
// dumps the raw name list as JSON.
func (c *client) listDevices(printJSON bool) {
	var names []string
	c.getJSON("/api/v1/devices", &names)

	if printJSON {
		printIndented(names)
		return
	}

	var rows []map[string]any
	for _, name := range names {
		var state map[string]any
		c.getJSON("/api/v1/devices/"+name, &state)
		rows = append(rows, filterKeys(state, allowedKeysFor(state), ""))
	}

	renderTable(rows)
}

// deviceDetail renders a single device as a one-row table or raw JSON.
func (c *client) deviceDetail(name string, printJSON bool) {
	var state map[string]any
	c.getJSON("/api/v1/devices/"+name, &state)

	if printJSON {
		printIndented(state)
		return
	}

	renderTable([]map[string]any{filterKeys(state, allowedKeysFor(state), "")})
}

// dispatchAction POSTs one action and prints the dispatch result.
func (c *client) dispatchAction(name, action, msg string) {
	body := map[string]any{"action": action}
	if msg != "" {
		// A JSON payload passes through structured; anything else is a
		// plain value the server coerces.
		var structured any
		if err := json.Unmarshal([]byte(msg), &structured); err == nil {
			body["msg"] = structured
		} else {
			body["msg"] = msg
		}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		fatal(fmt.Sprintf("encoding request: %v", err))
	}

	resp, err := c.http.Post(c.baseURL+"/api/v1/devices/"+name, "application/json", bytes.NewReader(raw))
	if err != nil {
		fatal(fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		fatal(fmt.Sprintf("reading response: %v", err))
	}
	if resp.StatusCode != http.StatusOK {
		fatal(fmt.Sprintf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(out))))
	}

	var result any
	if err := json.Unmarshal(out, &result); err != nil {
		fatal(fmt.Sprintf("decoding response: %v", err))
	}
	printIndented(result)
}

func (c *client) getJSON(path string, out any) {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		fatal(fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fatal(fmt.Sprintf("reading response: %v", err))
	}
	if resp.StatusCode != http.StatusOK {
		fatal(fmt.Sprintf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	if err := json.Unmarshal(body, out); err != nil {
		fatal(fmt.Sprintf("decoding response: %v", err))
	}
}

// allowedKeysFor picks the display allow-list from the state's type
// field. Unknown types show nothing but the name and timestamp.
func allowedKeysFor(state map[string]any) []string {
	t, _ := state["type"].(string)
	if keys, found := overviewKeys[t]; found {
		return keys
	}
	return []string{"name", "last_update.human"}
}

// filterKeys keeps only allow-listed fields, flattening nested objects
// one level deep as prefix.key.
func filterKeys(data map[string]any, allowed []string, prefix string) map[string]any {
	out := make(map[string]any)
	for k, v := range data {
		if nested, isMap := v.(map[string]any); isMap {
			for fk, fv := range filterKeys(nested, allowed, k) {
				out[fk] = fv
			}
			continue
		}
		if prefix != "" {
			k = prefix + "." + k
		}
		for _, a := range allowed {
			if k == a {
				out[k] = v
				break
			}
		}
	}
	return out
}

// renderTable prints rows as one table whose columns are the sorted
// union of all row keys.
func renderTable(rows []map[string]any) {
	headerSet := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			headerSet[k] = true
		}
	}
	headers := make([]string, 0, len(headerSet))
	for k := range headerSet {
		headers = append(headers, k)
	}
	sort.Strings(headers)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)

	for _, row := range rows {
		cells := make([]string, len(headers))
		for i, h := range headers {
			if v, found := row[h]; found {
				cells[i] = fmt.Sprintf("%v", v)
			}
		}
		t.Row(cells...)
	}

	fmt.Println(t)
}

func printIndented(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal(fmt.Sprintf("encoding output: %v", err))
	}
	fmt.Println(string(out))
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "Error: "+msg)
	os.Exit(1)
}
