// Package planner turns instructions into ordered provider operations using a
// deterministic keyword rule table. Planning never fails: an unrecognized
// instruction degenerates to the in-process post-step alone.
package planner

import (
	"sort"
	"strings"

	"mcp-agent/pkg/models"
)

// EnabledView is the read-only registry view the planner consults before
// emitting an operation for a provider.
type EnabledView interface {
	IsEnabled(name string) bool
}

// Result is the planner output. Degenerate marks the fallback case where no
// rule matched and only the post-step remains.
type Result struct {
	Operations []models.Operation
	Degenerate bool
}

// Planner is stateless apart from its registry view; goals passed to Plan are
// read-only bias and are never mutated.
type Planner struct {
	enabled EnabledView
}

func New(enabled EnabledView) *Planner {
	return &Planner{enabled: enabled}
}

var searchKeywords = []string{"search", "find", "research"}
var codeKeywords = []string{"github", "repository", "repo", "code"}
var gitKeywords = []string{"commit", "push", "clone", "git"}
var graphKeywords = []string{"graph", "node", "relationship", "traverse", "statistics"}
var fileKeywords = []string{"file", "read", "write", "list", "directory", "folder"}

// Plan maps the instruction onto the operation menu. Search intent fans out
// to every enabled search-capable provider (web_search always, github too),
// since both serve the same intent; explicit code-hosting keywords reach
// github on their own. The returned sequence always ends with the post-step.
func (p *Planner) Plan(instruction string, goals []models.Goal) Result {
	text := strings.ToLower(instruction)
	var ops []models.Operation

	searching := containsAny(text, searchKeywords)
	coding := containsAny(text, codeKeywords)

	if searching && p.enabled.IsEnabled("web_search") {
		ops = append(ops, models.NewOperation(models.OpWebSearch, map[string]any{
			"query":       searchQuery(text),
			"max_results": 5,
		}))
	}
	if (searching || coding) && p.enabled.IsEnabled("github") {
		ops = append(ops, models.NewOperation(models.OpGitHubSearchRepos, map[string]any{
			"query": searchQuery(text),
		}))
	}
	if containsAny(text, fileKeywords) && p.enabled.IsEnabled("filesystem") {
		ops = append(ops, models.NewOperation(fileKind(text), map[string]any{"path": "."}))
	}
	if containsAny(text, gitKeywords) && p.enabled.IsEnabled("git") {
		ops = append(ops, models.NewOperation(gitKind(text), nil))
	}
	if containsAny(text, graphKeywords) && p.enabled.IsEnabled("graph") {
		ops = append(ops, models.NewOperation(models.OpGraphStatistics, nil))
	}

	degenerate := len(ops) == 0
	biasByGoals(ops, goals)

	ops = append(ops, models.NewOperation(models.OpProcess, nil))
	return Result{Operations: ops, Degenerate: degenerate}
}

// biasByGoals stably reorders operations so that providers mentioned in an
// earlier goal come first. Goals are scanned in insertion order; the first
// goal naming a provider decides its rank.
func biasByGoals(ops []models.Operation, goals []models.Goal) {
	if len(goals) == 0 || len(ops) < 2 {
		return
	}
	rank := func(provider string) int {
		for i, g := range goals {
			if strings.Contains(strings.ToLower(g.Description), provider) {
				return i
			}
		}
		return len(goals)
	}
	sort.SliceStable(ops, func(i, j int) bool {
		return rank(ops[i].Provider) < rank(ops[j].Provider)
	})
}

func fileKind(text string) models.OpKind {
	switch {
	case strings.Contains(text, "write"):
		return models.OpFSWriteFile
	case strings.Contains(text, "read"):
		return models.OpFSReadFile
	default:
		return models.OpFSListFiles
	}
}

func gitKind(text string) models.OpKind {
	switch {
	case strings.Contains(text, "push"):
		return models.OpGitPush
	case strings.Contains(text, "clone"):
		return models.OpGitClone
	default:
		return models.OpGitCommit
	}
}

// searchQuery strips the recognized search verbs from the instruction to
// leave the query terms.
func searchQuery(text string) string {
	query := text
	for _, kw := range []string{"search for", "research", "search", "find"} {
		query = strings.ReplaceAll(query, kw, "")
	}
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return text
	}
	return query
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
