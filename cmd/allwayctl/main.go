package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AllWayChat/chat-plugin/pkg/allway"
	"github.com/AllWayChat/chat-plugin/pkg/config"
	"github.com/AllWayChat/chat-plugin/pkg/dispatch"
	"github.com/AllWayChat/chat-plugin/pkg/logger"
	"github.com/AllWayChat/chat-plugin/pkg/logsink"
	"github.com/AllWayChat/chat-plugin/pkg/maintenance"
	"github.com/AllWayChat/chat-plugin/pkg/resolve"
	"github.com/AllWayChat/chat-plugin/pkg/stats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "test-connection":
		testConnectionCommand(os.Args[2:])
	case "inboxes":
		inboxesCommand(os.Args[2:])
	case "send":
		sendCommand(os.Args[2:])
	case "logs":
		logsCommand(os.Args[2:])
	case "stats":
		statsCommand(os.Args[2:])
	case "purge":
		purgeCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("❌ Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("allwayctl - AllWay Chat delivery tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  allwayctl test-connection [-account NAME]")
	fmt.Println("  allwayctl inboxes [-account NAME]")
	fmt.Println("  allwayctl send -inbox ID -to IDENTIFIER [-text MSG | -image URL | -document URL] [flags]")
	fmt.Println("  allwayctl logs [-account NAME] [-limit N]")
	fmt.Println("  allwayctl stats [-account NAME] [-period PERIOD] [-labels a,b]")
	fmt.Println("  allwayctl purge [-run]")
	fmt.Println()
	fmt.Println("Config file: " + getConfigPath())
}

func getConfigPath() string {
	if path := os.Getenv("ALLWAYCHAT_CONFIG_PATH"); path != "" {
		return path
	}
	return config.DefaultConfigPath()
}

func loadSetup(accountName string) (*config.Config, *allway.Account, *allway.Client) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)

	var acc *allway.Account
	if accountName != "" {
		acc, err = cfg.AccountByName(accountName)
	} else {
		acc, err = cfg.FirstActiveAccount()
	}
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	return cfg, acc, allway.New()
}

func openSink(cfg *config.Config) logsink.Sink {
	sink, err := logsink.NewSink(cfg.DeliveryLog.Sink)
	if err != nil {
		fmt.Printf("❌ Error creating delivery log sink: %v\n", err)
		os.Exit(1)
	}
	if err := sink.Connect(context.Background()); err != nil {
		fmt.Printf("❌ Error connecting delivery log sink: %v\n", err)
		os.Exit(1)
	}
	return sink
}

func testConnectionCommand(args []string) {
	fs := flag.NewFlagSet("test-connection", flag.ExitOnError)
	account := fs.String("account", "", "account name (default: first active)")
	fs.Parse(args)

	_, acc, client := loadSetup(*account)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if client.TestConnection(ctx, acc) {
		fmt.Printf("✅ Connected to %s (account %d)\n", acc.ServerURL, acc.AccountID)
		return
	}
	fmt.Printf("❌ Could not authenticate against %s as account %d\n", acc.ServerURL, acc.AccountID)
	os.Exit(1)
}

func inboxesCommand(args []string) {
	fs := flag.NewFlagSet("inboxes", flag.ExitOnError)
	account := fs.String("account", "", "account name (default: first active)")
	fs.Parse(args)

	_, acc, client := loadSetup(*account)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	inboxes, err := client.GetInboxes(ctx, acc)
	if err != nil {
		fmt.Printf("❌ Error listing inboxes: %v\n", err)
		os.Exit(1)
	}
	if len(inboxes) == 0 {
		fmt.Println("No inboxes on this account")
		return
	}
	for _, inbox := range inboxes {
		public := ""
		if inbox.InboxIdentifier != "" {
			public = " (public API)"
		}
		fmt.Printf("  %d  %s  [%s]%s\n", inbox.ID, inbox.Name, inbox.ChannelType, public)
	}
}

func sendCommand(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	account := fs.String("account", "", "account name (default: first active)")
	inboxID := fs.Int64("inbox", 0, "inbox id (required)")
	to := fs.String("to", "", "destination email or phone (required)")
	text := fs.String("text", "", "text message content")
	image := fs.String("image", "", "image URL to send as attachment")
	document := fs.String("document", "", "document URL to send as attachment")
	caption := fs.String("caption", "", "attachment caption")
	name := fs.String("name", "", "contact display name")
	conversation := fs.Int64("conversation", 0, "target a specific conversation id")
	newConversation := fs.Bool("new-conversation", false, "always open a new conversation")
	reuse := fs.Bool("reuse-conversation", false, "reuse the most recent conversation")
	status := fs.String("status", "", "status for a newly created conversation (open|pending|resolved)")
	fs.Parse(args)

	if *inboxID == 0 || *to == "" {
		fmt.Println("❌ -inbox and -to are required")
		os.Exit(1)
	}
	if *text == "" && *image == "" && *document == "" {
		fmt.Println("❌ one of -text, -image or -document is required")
		os.Exit(1)
	}

	cfg, acc, client := loadSetup(*account)
	sink := openSink(cfg)
	defer sink.Close()

	d := dispatch.NewWithClient(client, sink)

	opts := dispatch.SendOptions{
		ContactName:        *name,
		ConversationStatus: *status,
	}
	switch {
	case *conversation != 0:
		opts.Policy = resolve.SpecificConversation(allway.ConversationID(*conversation))
	case *newConversation:
		opts.Policy = resolve.ForceNewPolicy()
	case *reuse:
		opts.Policy = resolve.ReusePolicy()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var receipt *dispatch.Receipt
	var err error
	switch {
	case *text != "":
		receipt, err = d.SendText(ctx, acc, allway.InboxID(*inboxID), *to, *text, opts)
	case *image != "":
		receipt, err = d.SendImage(ctx, acc, allway.InboxID(*inboxID), *to, *image, *caption, opts)
	default:
		receipt, err = d.SendDocument(ctx, acc, allway.InboxID(*inboxID), *to, *document, *caption, opts)
	}
	if err != nil {
		fmt.Printf("❌ Send failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Delivered: contact=%d conversation=%d message=%d\n",
		receipt.ContactID, receipt.ConversationID, receipt.MessageID)
}

func logsCommand(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	account := fs.String("account", "", "account name (default: first active)")
	limit := fs.Int("limit", 20, "max entries to show")
	fs.Parse(args)

	cfg, acc, _ := loadSetup(*account)
	sink := openSink(cfg)
	defer sink.Close()

	entries, err := sink.List(context.Background(), int64(acc.AccountID), *limit)
	if err != nil {
		fmt.Printf("❌ Error reading delivery log: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("No delivery log entries")
		return
	}
	for _, e := range entries {
		status := "✅"
		detail := ""
		if !e.Succeeded() {
			status = "❌"
			detail = "  error: " + e.Error
		}
		fmt.Printf("%s %s  %s  %q%s\n", status, e.SentAt.Format(time.RFC3339), e.ToContact, e.Content, detail)
	}
}

func statsCommand(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	account := fs.String("account", "", "account name (default: first active)")
	period := fs.String("period", string(stats.PeriodToday), "reporting period")
	labelList := fs.String("labels", "", "comma-separated label names for conversation counts")
	fs.Parse(args)

	_, acc, client := loadSetup(*account)
	svc := stats.NewService(client, nil)

	var labelNames []string
	if *labelList != "" {
		for _, l := range strings.Split(*labelList, ",") {
			if l = strings.TrimSpace(l); l != "" {
				labelNames = append(labelNames, l)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	conversations, err := svc.ConversationCount(ctx, acc, stats.Period(*period), labelNames)
	if err != nil {
		fmt.Printf("❌ Error counting conversations: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Conversations (%s): %d\n", *period, conversations)

	if len(labelNames) == 0 {
		messages, err := svc.MessageCount(ctx, acc, stats.Period(*period))
		if err != nil {
			fmt.Printf("❌ Error counting messages: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Messages (%s): %d\n", *period, messages)
	}
}

func purgeCommand(args []string) {
	fs := flag.NewFlagSet("purge", flag.ExitOnError)
	run := fs.Bool("run", false, "run the scheduler in the foreground instead of purging once")
	fs.Parse(args)

	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)

	sink := openSink(cfg)
	defer sink.Close()

	purger, err := maintenance.NewPurger(sink, cfg.DeliveryLog.PurgeSchedule, cfg.DeliveryLog.RetentionDays)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	if *run {
		fmt.Printf("🕐 Purge scheduler running (%s, keep %d days). Ctrl-C to stop.\n",
			cfg.DeliveryLog.PurgeSchedule, cfg.DeliveryLog.RetentionDays)
		purger.Run(context.Background())
		return
	}
	purger.PurgeOnce(context.Background())
	fmt.Println("✅ Purge pass finished")
}
