package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/sponsorlink/marketplace/backend/internal/model/chat"
	"github.com/sponsorlink/marketplace/backend/internal/model/playbook"
	chatservice "github.com/sponsorlink/marketplace/backend/internal/service/chat"
)

var (
	playbookFile string
	playbookID   string
	replyDelay   time.Duration
	asUserType   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chatcli",
		Short: "Talk to the SponsorLink assistant from a terminal",
		Long: `chatcli runs a widget conversation in-process.

Type messages at the prompt. /toggle flips the widget, /state prints the
session, /quit exits.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := loadScript(cmd.Context())
			if err != nil {
				return err
			}
			return runInteractive(cmd.Context(), script, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	root.PersistentFlags().StringVar(&playbookFile, "playbook-file", "", "YAML file with extra playbooks")
	root.PersistentFlags().StringVar(&playbookID, "playbook", playbook.DefaultID, "playbook to run")
	root.Flags().DurationVar(&replyDelay, "delay", 500*time.Millisecond, "artificial typing delay before bot replies")

	classify := &cobra.Command{
		Use:   "classify [message]",
		Short: "Show which reply a single message would get",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := loadScript(cmd.Context())
			if err != nil {
				return err
			}
			return runClassify(cmd.Context(), script, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
	classify.Flags().StringVar(&asUserType, "as", string(chat.UserTypeUnknown), "current user type: unknown, brand or event_organizer")
	root.AddCommand(classify)

	return root
}

func loadScript(ctx context.Context) (*chatservice.Script, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	items := playbook.Seed()
	if playbookFile != "" {
		extra, err := playbook.LoadFile(playbookFile)
		if err != nil {
			return nil, err
		}
		items = append(items, extra...)
	}

	p, ok := playbook.NewMemoryStore(items).FindByID(playbookID)
	if !ok {
		return nil, fmt.Errorf("playbook %q not found", playbookID)
	}
	return chatservice.NewScript(ctx, p)
}

func runClassify(ctx context.Context, script *chatservice.Script, text string, out io.Writer) error {
	var current chat.UserType
	switch chat.UserType(asUserType) {
	case chat.UserTypeUnknown, chat.UserTypeBrand, chat.UserTypeEventOrganizer:
		current = chat.UserType(asUserType)
	default:
		return fmt.Errorf("invalid --as value %q", asUserType)
	}

	decision, err := script.Decide(ctx, current, text)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "kind:     %s\nuserType: %s\nintent:   %s\nreply:    %s\n",
		decision.Kind, decision.UserType, decision.Intent, decision.Reply)
	return nil
}

// lockedWriter lets the reply printer and the prompt loop share one output.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func runInteractive(ctx context.Context, script *chatservice.Script, in io.Reader, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := &lockedWriter{w: w}

	conv := chatservice.NewConversation(fmt.Sprintf("cli-%d", time.Now().UnixNano()), script,
		chatservice.WithReplyDelay(replyDelay))
	defer conv.Close()

	feed, cancel := conv.Subscribe(16)
	defer cancel()

	printMessage(out, conv.Messages()[0])
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range feed {
			if msg.Sender == chat.SenderBot {
				printMessage(out, msg)
			}
		}
	}()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit":
			conv.Close()
			<-done
			return nil
		case "/toggle":
			fmt.Fprintf(out, "[widget open: %t]\n", conv.Toggle())
		case "/state":
			fmt.Fprintf(out, "[userType: %s, messages: %d, pending: %d]\n",
				conv.UserType(), len(conv.Messages()), conv.Pending())
		default:
			conv.AddMessage(ctx, line, chat.SenderUser)
		}
	}

	// Let queued replies land before exiting on EOF.
	deadline := time.Now().Add(replyDelay + time.Second)
	for conv.Pending() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	conv.Close()
	<-done
	return scanner.Err()
}

func printMessage(out io.Writer, msg chat.Message) {
	fmt.Fprintf(out, "bot> %s\n", msg.Content)
}
