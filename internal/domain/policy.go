package domain

import "context"

// PolicyInput is the document handed to the policy engine before a mutation
// is allowed to touch a tree.
type PolicyInput struct {
	Operation string `json:"operation"`
	Tree      string `json:"tree"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	NoteBytes int    `json:"note_bytes"`
}

type PolicyDenial struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PolicyResult struct {
	Allow bool           `json:"allow"`
	Deny  []PolicyDenial `json:"deny"`
}

type PolicyEvaluation struct {
	BundleID   string
	BundleHash string
	Result     PolicyResult
}

type PolicyEngine interface {
	Evaluate(ctx context.Context, input PolicyInput) (PolicyEvaluation, error)
}
