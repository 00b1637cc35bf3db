package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"notetree/internal/domain"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type createTreeRequest struct {
	TreeID        string `json:"tree_id"`
	MaxDepth      uint32 `json:"max_depth"`
	MaxBufferSize uint32 `json:"max_buffer_size"`
}

type treeResponse struct {
	TreeID        string `json:"tree_id"`
	MaxDepth      uint32 `json:"max_depth"`
	MaxBufferSize uint32 `json:"max_buffer_size"`
	AuthorityBump uint8  `json:"authority_bump"`
	Root          string `json:"root"`
	Seq           uint64 `json:"seq"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type appendMessageRequest struct {
	Recipient string `json:"recipient"`
	Note      string `json:"note"`
}

type appendMessageResponse struct {
	Index uint32 `json:"index"`
	Leaf  string `json:"leaf"`
	Root  string `json:"root"`
}

type updateMessageRequest struct {
	Root      string `json:"root"`
	OldNote   string `json:"old_note"`
	NewNote   string `json:"new_note"`
	Recipient string `json:"recipient"`
}

type updateMessageResponse struct {
	Leaf string `json:"leaf,omitempty"`
	Root string `json:"root"`
	NoOp bool   `json:"no_op"`
}

type eventResponse struct {
	Seq            uint64 `json:"seq"`
	Leaf           string `json:"leaf"`
	Owner          string `json:"owner"`
	Recipient      string `json:"recipient"`
	Note           string `json:"note"`
	PrevRecordHash string `json:"prev_record_hash"`
	RecordHash     string `json:"record_hash"`
	CreatedAt      string `json:"created_at"`
}

func (s *Server) handleCreateTree(c *gin.Context) {
	if s.createUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req createTreeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	treeID, err := domain.ParseAddress(req.TreeID)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_TREE_ID", "tree id must be 32 hex-encoded bytes")
		return
	}
	if !s.enforceRateLimit(c, routeTreesCreate, req.TreeID) {
		return
	}
	sender, ok := s.requireSender(c)
	if !ok {
		return
	}
	if !s.checkPolicy(c, "tree.create", treeID, sender, domain.Address{}, 0) {
		return
	}

	tree, err := s.createUC.Run(c.Request.Context(), treeID, req.MaxDepth, req.MaxBufferSize)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildTreeResponse(tree))
}

func (s *Server) handleGetTree(c *gin.Context) {
	if s.trees == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	treeID, err := domain.ParseAddress(c.Param("tree_id"))
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_TREE_ID", "tree id must be 32 hex-encoded bytes")
		return
	}
	if !s.enforceRateLimit(c, routeTreesRead, treeID.String()) {
		return
	}
	tree, err := s.trees.GetByID(c.Request.Context(), treeID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildTreeResponse(*tree))
}

func (s *Server) handleListEvents(c *gin.Context) {
	if s.events == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	treeID, err := domain.ParseAddress(c.Param("tree_id"))
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_TREE_ID", "tree id must be 32 hex-encoded bytes")
		return
	}
	if !s.enforceRateLimit(c, routeEventsRead, treeID.String()) {
		return
	}
	events, err := s.events.ListByTree(c.Request.Context(), treeID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, buildEventResponse(event))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleAppendMessage(c *gin.Context) {
	if s.appendUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	treeID, err := domain.ParseAddress(c.Param("tree_id"))
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_TREE_ID", "tree id must be 32 hex-encoded bytes")
		return
	}
	var req appendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	recipient, err := domain.ParseAddress(req.Recipient)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_RECIPIENT", "recipient must be 32 hex-encoded bytes")
		return
	}
	if !s.enforceRateLimit(c, routeMessagesAppend, treeID.String()) {
		return
	}
	sender, ok := s.requireSender(c)
	if !ok {
		return
	}
	if !s.checkPolicy(c, "message.append", treeID, sender, recipient, len(req.Note)) {
		return
	}

	result, err := s.appendUC.Run(c.Request.Context(), treeID, sender, recipient, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, appendMessageResponse{
		Index: result.Index,
		Leaf:  result.Leaf.String(),
		Root:  result.Root.String(),
	})
}

func (s *Server) handleUpdateMessage(c *gin.Context) {
	if s.updateUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	treeID, err := domain.ParseAddress(c.Param("tree_id"))
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_TREE_ID", "tree id must be 32 hex-encoded bytes")
		return
	}
	index, err := strconv.ParseUint(c.Param("index"), 10, 32)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_INDEX", "index must be an unsigned integer")
		return
	}
	var req updateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	claimedRoot, err := domain.ParseHash(req.Root)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ROOT", "root must be 32 hex-encoded bytes")
		return
	}
	recipient, err := domain.ParseAddress(req.Recipient)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_RECIPIENT", "recipient must be 32 hex-encoded bytes")
		return
	}
	if !s.enforceRateLimit(c, routeMessagesUpdate, treeID.String()) {
		return
	}
	sender, ok := s.requireSender(c)
	if !ok {
		return
	}
	if !s.checkPolicy(c, "message.update", treeID, sender, recipient, len(req.NewNote)) {
		return
	}

	result, err := s.updateUC.Run(c.Request.Context(), treeID, uint32(index), claimedRoot, req.OldNote, req.NewNote, sender, recipient)
	if err != nil {
		writeError(c, err)
		return
	}
	out := updateMessageResponse{
		Root: result.Root.String(),
		NoOp: result.NoOp,
	}
	if !result.NoOp {
		out.Leaf = result.Leaf.String()
	}
	c.JSON(http.StatusOK, out)
}

// checkPolicy evaluates the mutation against the configured bundle. A policy
// engine failure denies the request; mutations never proceed unevaluated.
func (s *Server) checkPolicy(c *gin.Context, operation string, treeID domain.Address, sender, recipient domain.Address, noteBytes int) bool {
	if s.policy == nil {
		return true
	}
	input := domain.PolicyInput{
		Operation: operation,
		Tree:      treeID.String(),
		Sender:    sender.String(),
		NoteBytes: noteBytes,
	}
	if !recipient.IsZero() {
		input.Recipient = recipient.String()
	}
	evaluation, err := s.policy.Evaluate(c.Request.Context(), input)
	if err != nil {
		writeErrorCode(c, http.StatusInternalServerError, "POLICY_ERROR", "policy evaluation failed")
		return false
	}
	if !evaluation.Result.Allow {
		c.JSON(http.StatusForbidden, errorResponse{
			Code:    "POLICY_DENIED",
			Message: "request denied by policy",
			Details: map[string]any{
				"bundle_id":   evaluation.BundleID,
				"bundle_hash": evaluation.BundleHash,
				"deny":        evaluation.Result.Deny,
			},
		})
		return false
	}
	return true
}

func buildTreeResponse(tree domain.Tree) treeResponse {
	return treeResponse{
		TreeID:        tree.ID.String(),
		MaxDepth:      tree.MaxDepth,
		MaxBufferSize: tree.MaxBufferSize,
		AuthorityBump: tree.AuthorityBump,
		Root:          tree.Root.String(),
		Seq:           tree.Seq,
		CreatedAt:     tree.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     tree.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func buildEventResponse(event domain.StoredNoteEvent) eventResponse {
	return eventResponse{
		Seq:            event.Seq,
		Leaf:           event.Event.Leaf.String(),
		Owner:          event.Event.Owner.String(),
		Recipient:      event.Event.Recipient.String(),
		Note:           event.Event.Note,
		PrevRecordHash: event.PrevRecordHash,
		RecordHash:     event.RecordHash,
		CreatedAt:      event.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidTreeParams):
		status, code = http.StatusBadRequest, "INVALID_TREE_PARAMS"
	case errors.Is(err, domain.ErrNoteTooLarge):
		status, code = http.StatusRequestEntityTooLarge, "NOTE_TOO_LARGE"
	case errors.Is(err, domain.ErrTreeAlreadyInitialized):
		status, code = http.StatusConflict, "TREE_EXISTS"
	case errors.Is(err, domain.ErrTreeNotFound):
		status, code = http.StatusNotFound, "TREE_NOT_FOUND"
	case errors.Is(err, domain.ErrTreeCapacityExceeded):
		status, code = http.StatusInsufficientStorage, "TREE_FULL"
	case errors.Is(err, domain.ErrRootWindowExceeded):
		status, code = http.StatusConflict, "ROOT_WINDOW_EXCEEDED"
	case errors.Is(err, domain.ErrConcurrentRootMismatch):
		status, code = http.StatusConflict, "CONCURRENT_ROOT_MISMATCH"
	case errors.Is(err, domain.ErrEventConflict):
		status, code = http.StatusConflict, "EVENT_CONFLICT"
	case errors.Is(err, domain.ErrLeafVerificationFailed):
		status, code = http.StatusConflict, "LEAF_VERIFICATION_FAILED"
	case errors.Is(err, domain.ErrAuthorityDerivation):
		status, code = http.StatusInternalServerError, "AUTHORITY_DERIVATION_FAILED"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
