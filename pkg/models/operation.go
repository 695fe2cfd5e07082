package models

// OpKind enumerates the closed menu of operations the planner may emit. Each
// kind binds a provider name to one of its methods; OpProcess is the catch-all
// post-step that runs in-process once the provider calls have settled.
type OpKind string

const (
	OpProcess           OpKind = "process"
	OpWebSearch         OpKind = "web_search.search"
	OpGitHubSearchRepos OpKind = "github.search_repositories"
	OpFSListFiles       OpKind = "filesystem.list_files"
	OpFSReadFile        OpKind = "filesystem.read_file"
	OpFSWriteFile       OpKind = "filesystem.write_file"
	OpGitCommit         OpKind = "git.commit"
	OpGitPush           OpKind = "git.push"
	OpGitClone          OpKind = "git.clone"
	OpGraphStatistics   OpKind = "graph.get_graph_statistics"
)

var opBindings = map[OpKind][2]string{
	OpWebSearch:         {"web_search", "search"},
	OpGitHubSearchRepos: {"github", "search_repositories"},
	OpFSListFiles:       {"filesystem", "list_files"},
	OpFSReadFile:        {"filesystem", "read_file"},
	OpFSWriteFile:       {"filesystem", "write_file"},
	OpGitCommit:         {"git", "commit"},
	OpGitPush:           {"git", "push"},
	OpGitClone:          {"git", "clone"},
	OpGraphStatistics:   {"graph", "get_graph_statistics"},
}

// ProviderName returns the provider serving this kind, or "" for OpProcess.
func (k OpKind) ProviderName() string {
	return opBindings[k][0]
}

// MethodName returns the bound method, or "" for OpProcess.
func (k OpKind) MethodName() string {
	return opBindings[k][1]
}

// Operation is one planned invocation of a provider method with bound
// parameters. Immutable once planned; operations are never re-ordered after
// dispatch.
type Operation struct {
	Kind     OpKind         `json:"kind"`
	Provider string         `json:"provider,omitempty"`
	Method   string         `json:"method,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
}

// NewOperation builds an Operation for the given kind with the provider and
// method fields filled in from the binding table.
func NewOperation(kind OpKind, params map[string]any) Operation {
	return Operation{
		Kind:     kind,
		Provider: kind.ProviderName(),
		Method:   kind.MethodName(),
		Params:   params,
	}
}
