package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	humanize "github.com/dustin/go-humanize"
	qrcode "github.com/skip2/go-qrcode"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/notioff/telesuper/internal/api"
	"github.com/notioff/telesuper/internal/config"
	"github.com/notioff/telesuper/internal/session"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	cfg, err := config.Resolve(session.ConfigPath())
	if err != nil {
		fatalf("config: %v", err)
	}
	name := session.Resolve(*sessionFlag, cfg)
	if err := session.ValidateName(name); err != nil {
		fatalf("%v", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c, err := api.Dial(session.For(name).Socket())
	if err != nil {
		fatalf("cannot connect to daemon for session %q: %v", name, err)
	}
	defer func() { _ = c.Close() }()

	if args[0] == "watch" {
		cmdWatch(c, *jsonFlag)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		cmdStatus(ctx, c, *jsonFlag)
	case "chats":
		selector, limit := "all", 0
		if len(args) >= 2 {
			selector = args[1]
		}
		if len(args) >= 3 {
			limit = atoi(args[2], "limit")
		}
		cmdChats(ctx, c, selector, limit, *jsonFlag)
	case "messages":
		if len(args) < 2 {
			fatalf("usage: telesuperctl messages <chat_id> [limit] [thread_id]")
		}
		fields := map[string]any{"chat_id": parseID(args[1])}
		if len(args) >= 3 {
			fields["limit"] = atoi(args[2], "limit")
		}
		if len(args) >= 4 {
			fields["thread_id"] = parseID(args[3])
		}
		cmdMessages(ctx, c, fields, *jsonFlag)
	case "send":
		if len(args) < 3 {
			fatalf("usage: telesuperctl send <chat_id> <text>")
		}
		resp, err := c.SendText(ctx, parseID(args[1]), strings.Join(args[2:], " "))
		check(err)
		report(resp, *jsonFlag, "Queued.")
	case "storage":
		limit := 0
		if len(args) >= 2 {
			limit = atoi(args[1], "limit")
		}
		cmdStorage(ctx, c, limit, *jsonFlag)
	case "logout":
		resp, err := c.LogOut(ctx)
		check(err)
		report(resp, *jsonFlag, "Logout requested.")
	case "link":
		resp, err := c.Link(ctx)
		check(err)
		report(resp, *jsonFlag, "Login restarted. Run `telesuperctl status` for the QR code.")
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: telesuperctl [--session <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                              Show session status and login QR")
	fmt.Fprintln(os.Stderr, "  chats [all|personal|groups|channels] [limit]")
	fmt.Fprintln(os.Stderr, "                                      List chats")
	fmt.Fprintln(os.Stderr, "  messages <chat_id> [limit] [thread] Show recent messages")
	fmt.Fprintln(os.Stderr, "  send <chat_id> <text>               Send a text message")
	fmt.Fprintln(os.Stderr, "  storage [chat_limit]                Show cached file usage")
	fmt.Fprintln(os.Stderr, "  watch                               Stream cache events")
	fmt.Fprintln(os.Stderr, "  logout                              Log out of the session")
	fmt.Fprintln(os.Stderr, "  link                                Start a new login")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func check(err error) {
	if err != nil {
		fatalf("%v", err)
	}
}

func atoi(s, what string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		fatalf("invalid %s %q", what, s)
	}
	return n
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fatalf("invalid id %q", s)
	}
	return id
}

func cmdStatus(ctx context.Context, c *api.Client, jsonOut bool) {
	resp, err := c.GetStatus(ctx)
	check(err)
	if jsonOut {
		outputJSON(resp.AsMap())
		return
	}
	f := resp.GetFields()
	fmt.Printf("Session: %s\n", f["session"].GetStringValue())
	fmt.Printf("State:   %s\n", f["auth_state"].GetStringValue())
	fmt.Printf("Chats:   %d\n", int64(f["chat_count"].GetNumberValue()))
	fmt.Printf("Uptime:  %s\n", time.Duration(f["uptime_ms"].GetNumberValue())*time.Millisecond)
	if e := f["last_error"].GetStringValue(); e != "" {
		fmt.Printf("Error:   %s\n", e)
	}
	if link := f["link"].GetStringValue(); link != "" {
		qr, err := qrcode.New(link, qrcode.Medium)
		check(err)
		fmt.Println()
		fmt.Println("Scan with WhatsApp > Linked devices:")
		fmt.Print(qr.ToSmallString(false))
	}
}

func cmdChats(ctx context.Context, c *api.Client, selector string, limit int, jsonOut bool) {
	resp, err := c.ListChats(ctx, selector, limit)
	check(err)
	if jsonOut {
		outputJSON(resp.AsMap())
		return
	}
	chats := resp.GetFields()["chats"].GetListValue().GetValues()
	if len(chats) == 0 {
		fmt.Println("No chats.")
		return
	}
	for _, v := range chats {
		f := v.GetStructValue().GetFields()
		flags := ""
		if f["pinned"].GetBoolValue() {
			flags += "^"
		}
		if n := int64(f["unread_count"].GetNumberValue()); n > 0 {
			flags += fmt.Sprintf("(%d)", n)
		} else if f["marked_unread"].GetBoolValue() {
			flags += "(*)"
		}
		fmt.Printf("%-20d %-8s %-6s %s\n",
			int64(f["id"].GetNumberValue()), f["type"].GetStringValue(), flags, f["title"].GetStringValue())
	}
}

func cmdMessages(ctx context.Context, c *api.Client, fields map[string]any, jsonOut bool) {
	resp, err := c.Call(ctx, "ListMessages", fields)
	check(err)
	if jsonOut {
		outputJSON(resp.AsMap())
		return
	}
	msgs := resp.GetFields()["messages"].GetListValue().GetValues()
	// The window is newest first; print oldest first like a transcript.
	for i := len(msgs) - 1; i >= 0; i-- {
		f := msgs[i].GetStructValue().GetFields()
		at := time.Unix(int64(f["date"].GetNumberValue()), 0)
		from := "them"
		if f["outgoing"].GetBoolValue() {
			from = "you"
		}
		fmt.Printf("%s  %-4s  %s\n", at.Format("2006-01-02 15:04"), from, f["text"].GetStringValue())
	}
}

func cmdStorage(ctx context.Context, c *api.Client, limit int, jsonOut bool) {
	resp, err := c.StorageStatistics(ctx, limit)
	check(err)
	if jsonOut {
		outputJSON(resp.AsMap())
		return
	}
	f := resp.GetFields()
	fmt.Printf("Total: %s in %d files\n",
		humanize.IBytes(uint64(f["size"].GetNumberValue())), int64(f["count"].GetNumberValue()))
	for _, v := range f["by_chat"].GetListValue().GetValues() {
		cf := v.GetStructValue().GetFields()
		chat := "other"
		if id := int64(cf["chat_id"].GetNumberValue()); id != 0 {
			chat = strconv.FormatInt(id, 10)
		}
		fmt.Printf("  %-20s %10s %6d files\n", chat,
			humanize.IBytes(uint64(cf["size"].GetNumberValue())), int64(cf["count"].GetNumberValue()))
	}
}

// cmdWatch streams events until interrupted.
func cmdWatch(c *api.Client, jsonOut bool) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := c.WatchEvents(ctx, func(env *structpb.Struct) error {
		if jsonOut {
			outputJSON(env.AsMap())
			return nil
		}
		f := env.GetFields()
		at := time.UnixMilli(int64(f["occurred_at_unix_ms"].GetNumberValue()))
		fmt.Printf("%s  %-16s %s\n", at.Format("15:04:05.000"), f["kind"].GetStringValue(), f["payload"].GetStringValue())
		return nil
	})
	if err != nil && ctx.Err() == nil {
		fatalf("%v", err)
	}
}

func report(resp *structpb.Struct, jsonOut bool, text string) {
	if jsonOut {
		outputJSON(resp.AsMap())
		return
	}
	fmt.Println(text)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
