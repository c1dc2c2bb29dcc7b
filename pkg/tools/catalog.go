package tools

import "github.com/acordeiro/cellbook/pkg/domain"

// DefaultCatalog returns a registry pre-populated with the workspace
// tool descriptors.
func DefaultCatalog() *Registry {
	r := NewRegistry()
	for _, d := range workspaceTools {
		r.Register(d)
	}
	return r
}

var workspaceTools = []domain.ToolDescriptor{
	{
		AppName:     "DATABASES",
		Name:        "RUN_SQL",
		FullName:    "DATABASES_RUN_SQL",
		Description: "Run a SQL query against the workspace database",
		Params: domain.ParamSchema{
			Properties: map[string]string{"sql": "string", "params": "array"},
			Required:   []string{"sql"},
		},
		Example: `const result = await env.DATABASES.RUN_SQL({ sql: "SELECT * FROM users LIMIT 10" });`,
	},
	{
		AppName:     "PROFILES",
		Name:        "GET",
		FullName:    "PROFILES_GET",
		Description: "Get the current user's profile",
		Example:     `const user = await env.PROFILES.GET({});`,
	},
	{
		AppName:     "TEAMS",
		Name:        "LIST",
		FullName:    "TEAMS_LIST",
		Description: "List teams for the current user",
		Example:     `const teams = await env.TEAMS.LIST({});`,
	},
	{
		AppName:     "TEAMS",
		Name:        "GET_THEME",
		FullName:    "TEAMS_GET_THEME",
		Description: "Get the theme for a workspace",
		Params: domain.ParamSchema{
			Properties: map[string]string{"slug": "string"},
			Required:   []string{"slug"},
		},
		Example: `const theme = await env.TEAMS.GET_THEME({ slug: "my-workspace" });`,
	},
	{
		AppName:     "GITHUB_LUCIS",
		Name:        "GET_REPO",
		FullName:    "GITHUB_LUCIS.GET_REPO",
		Description: "Get detailed repository metadata",
		Params: domain.ParamSchema{
			Properties: map[string]string{"owner": "string", "repo": "string", "accessToken": "string"},
			Required:   []string{"owner", "repo"},
		},
		Example: `const repo = await env.GITHUB_LUCIS.GET_REPO({ owner: "facebook", repo: "react" });`,
	},
	{
		AppName:     "GITHUB_LUCIS",
		Name:        "LIST_REPO_ISSUES",
		FullName:    "GITHUB_LUCIS.LIST_REPO_ISSUES",
		Description: "List issues from a repository",
		Params: domain.ParamSchema{
			Properties: map[string]string{"owner": "string", "repo": "string", "state": "string"},
			Required:   []string{"owner", "repo"},
		},
		Example: `const issues = await env.GITHUB_LUCIS.LIST_REPO_ISSUES({ owner: "facebook", repo: "react", state: "open" });`,
	},
}
