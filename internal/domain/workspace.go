package domain

// Workspace identifies an isolated custody-provider credential set.
type Workspace string

const (
	WorkspacePrimary   Workspace = "primary"
	WorkspaceSecondary Workspace = "secondary"
)

// Workspaces is the fixed set of known workspaces. Credentials are resolved
// for every entry at startup; a workspace with missing configuration is
// disabled, not removed.
var Workspaces = []Workspace{WorkspacePrimary, WorkspaceSecondary}

// IdentityLink associates a linked identity with one vault account in one workspace.
type IdentityLink struct {
	Workspace      Workspace `json:"workspace"`
	VaultAccountID string    `json:"vaultAccountId"`
}
