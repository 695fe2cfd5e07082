// Package repl implements the interactive command loop: add_goal, execute,
// status, memory, health and quit against a running orchestrator.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"mcp-agent/internal/orchestrator"
	"mcp-agent/pkg/models"
)

// Loop reads commands line by line until quit or EOF.
type Loop struct {
	engine *orchestrator.Orchestrator
	in     io.Reader
	out    io.Writer

	prompt  *color.Color
	ok      *color.Color
	failure *color.Color
	info    *color.Color
}

// New builds a Loop bound to the given streams.
func New(engine *orchestrator.Orchestrator, in io.Reader, out io.Writer) *Loop {
	return &Loop{
		engine:  engine,
		in:      in,
		out:     out,
		prompt:  color.New(color.FgCyan, color.Bold),
		ok:      color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		info:    color.New(color.FgYellow),
	}
}

// Run drives the loop until quit, EOF or context cancellation.
func (l *Loop) Run(ctx context.Context) error {
	l.info.Fprintln(l.out, "agent ready. commands: add_goal, execute, status, memory, health, quit")

	scanner := bufio.NewScanner(l.in)
	for {
		l.prompt.Fprint(l.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		command, rest := splitCommand(scanner.Text())
		switch command {
		case "":
			continue
		case "quit", "exit":
			l.info.Fprintln(l.out, "bye")
			return nil
		case "help":
			fmt.Fprintln(l.out, "add_goal <description> | execute <instruction> | status | memory [n] | health | quit")
		case "add_goal":
			l.addGoal(rest)
		case "execute":
			l.execute(ctx, rest)
		case "status":
			l.status()
		case "memory":
			l.memory(rest)
		case "health":
			l.health(ctx)
		default:
			l.failure.Fprintf(l.out, "unknown command %q, try help\n", command)
		}
	}
}

func splitCommand(line string) (string, string) {
	fields := strings.SplitN(strings.TrimSpace(line), " ", 2)
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], strings.TrimSpace(fields[1])
}

func (l *Loop) addGoal(description string) {
	if description == "" {
		l.failure.Fprintln(l.out, "usage: add_goal <description>")
		return
	}
	goal := l.engine.AddGoal(description)
	l.ok.Fprintf(l.out, "goal #%d added: %s\n", goal.Priority, goal.Description)
}

func (l *Loop) execute(ctx context.Context, instruction string) {
	if instruction == "" {
		l.failure.Fprintln(l.out, "usage: execute <instruction>")
		return
	}

	task := l.engine.Execute(ctx, instruction)
	if task.Status == models.StatusCompleted {
		l.ok.Fprintf(l.out, "task %d completed\n", task.ID)
	} else {
		l.failure.Fprintf(l.out, "task %d failed\n", task.ID)
	}
	for provider, result := range task.Results {
		if result.OK() {
			l.ok.Fprintf(l.out, "  %s.%s ok (%s)\n", provider, result.Method, result.Latency)
		} else {
			l.failure.Fprintf(l.out, "  %s.%s %s: %s\n", provider, result.Method, result.Err.Kind, result.Err.Detail)
		}
	}
	if task.Result != nil {
		fmt.Fprintln(l.out, task.Result.Text)
	}
}

func (l *Loop) status() {
	st := l.engine.Status()
	fmt.Fprintf(l.out, "running: %t\n", st.Running)
	fmt.Fprintf(l.out, "queue length: %d\n", st.QueueLength)
	fmt.Fprintf(l.out, "providers: %s\n", strings.Join(st.Providers, ", "))
	fmt.Fprintf(l.out, "memory entries: %d/%d\n", st.MemorySize, st.MemoryCapacity)
	fmt.Fprintf(l.out, "learned patterns: %d\n", st.LearnedPatterns)
	if len(st.Goals) == 0 {
		fmt.Fprintln(l.out, "goals: none")
		return
	}
	fmt.Fprintln(l.out, "goals:")
	for _, goal := range st.Goals {
		fmt.Fprintf(l.out, "  %d. %s\n", goal.Priority, goal.Description)
	}
}

func (l *Loop) memory(arg string) {
	n := 10
	if arg != "" {
		parsed, err := strconv.Atoi(arg)
		if err != nil || parsed < 1 {
			l.failure.Fprintln(l.out, "usage: memory [n]")
			return
		}
		n = parsed
	}

	entries := l.engine.Recent(n)
	if len(entries) == 0 {
		fmt.Fprintln(l.out, "memory empty")
		return
	}
	for _, entry := range entries {
		fmt.Fprintf(l.out, "task %d @ %s: %s\n", entry.TaskID, entry.Timestamp.Format("15:04:05"), entry.Summary)
	}
}

func (l *Loop) health(ctx context.Context) {
	for provider, health := range l.engine.ProviderHealth(ctx) {
		switch health {
		case models.HealthOK:
			l.ok.Fprintf(l.out, "%s: %s\n", provider, health)
		default:
			l.failure.Fprintf(l.out, "%s: %s\n", provider, health)
		}
	}
}
