package domain

import "context"

// SchemaSource is the external schema capability. Introspect returns the
// raw table metadata the index is built from.
type SchemaSource interface {
	Introspect(ctx context.Context) (database string, tables []SchemaElement, err error)
}

// Embedder turns text into an embedding vector. The embedding/model
// provider's internals are a collaborator concern.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SchemaSearcher answers similarity queries against the schema index.
type SchemaSearcher interface {
	Search(ctx context.Context, text string, k int) ([]RankedElement, error)
	Snapshot() *SchemaSnapshot
}

// GenerativeClient is the language-understanding and synthesis capability.
// Classify and Synthesize are the pipeline's only external suspension
// points; both must honor ctx deadlines.
type GenerativeClient interface {
	Classify(ctx context.Context, question string) (*QueryIntent, error)
	Synthesize(ctx context.Context, req SynthesisRequest) (string, error)
}

// SynthesisRequest carries everything the generative capability may see:
// the intent, the expanded schema surface, worked examples, and feedback
// from a prior failed validation attempt.
type SynthesisRequest struct {
	Question string
	Intent   *QueryIntent
	Elements []SchemaElement
	Examples []WorkedExample
	Feedback string // validator error from the previous attempt, if any
}

// WorkedExample is one question/SQL pair from the pattern library.
type WorkedExample struct {
	Question string `yaml:"question"`
	SQL      string `yaml:"sql"`
}

// CredentialStore authenticates principals and loads their permission sets.
type CredentialStore interface {
	Authenticate(ctx context.Context, username, secret string) (*Principal, error)
	LoadGrant(ctx context.Context, principalID string) (*PermissionGrant, error)
}

// PrincipalRepository persists principals.
type PrincipalRepository interface {
	Create(ctx context.Context, req *CreatePrincipalRequest) (*Principal, error)
	GetByName(ctx context.Context, name string) (*Principal, error)
	List(ctx context.Context) ([]Principal, error)
	Delete(ctx context.Context, id string) error
}

// GrantRepository persists permission grants. Grants accumulate additively;
// LoadGrant returns the union of every grant row for the principal.
type GrantRepository interface {
	Add(ctx context.Context, principalID string, grant *PermissionGrant) error
	LoadGrant(ctx context.Context, principalID string) (*PermissionGrant, error)
}

// AuditRepository is the append-only audit sink.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, int64, error)
}

// ExecutionEngine runs an authorized statement against the target database.
// Invoked only after an allowed AuthorizationDecision.
type ExecutionEngine interface {
	Execute(ctx context.Context, sql string) (*ResultSet, error)
}

// ResultSet is the structured output of an executed query.
type ResultSet struct {
	Columns []string
	Rows    [][]interface{}
}
