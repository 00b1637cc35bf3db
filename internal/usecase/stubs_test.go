package usecase

import (
	"context"

	"notetree/internal/domain"
)

type engineStub struct {
	initRoot    domain.Hash
	initErr     error
	appendIndex uint32
	appendRoot  domain.Hash
	appendErr   error
	verifyErr   error
	replaceRoot domain.Hash
	replaceErr  error

	initCalls    int
	appendCalls  int
	verifyCalls  int
	replaceCalls int
}

func (e *engineStub) InitTree(ctx context.Context, proof domain.AuthorityProof, treeID domain.Address, maxDepth, maxBufferSize uint32) (domain.Hash, error) {
	e.initCalls++
	return e.initRoot, e.initErr
}

func (e *engineStub) AppendLeaf(ctx context.Context, proof domain.AuthorityProof, treeID domain.Address, leaf domain.Hash) (uint32, domain.Hash, error) {
	e.appendCalls++
	return e.appendIndex, e.appendRoot, e.appendErr
}

func (e *engineStub) VerifyLeaf(ctx context.Context, proof domain.AuthorityProof, treeID domain.Address, root domain.Hash, leaf domain.Hash, index uint32) error {
	e.verifyCalls++
	return e.verifyErr
}

func (e *engineStub) ReplaceLeaf(ctx context.Context, proof domain.AuthorityProof, treeID domain.Address, root domain.Hash, oldLeaf, newLeaf domain.Hash, index uint32) (domain.Hash, error) {
	e.replaceCalls++
	return e.replaceRoot, e.replaceErr
}

type sinkStub struct {
	records [][]byte
	err     error
}

func (s *sinkStub) Emit(ctx context.Context, treeID domain.Address, record []byte) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

type treeRepoStub struct {
	created []domain.Tree
	roots   []domain.Hash
}

func (r *treeRepoStub) Create(ctx context.Context, tree domain.Tree) error {
	r.created = append(r.created, tree)
	return nil
}

func (r *treeRepoStub) GetByID(ctx context.Context, id domain.Address) (*domain.Tree, error) {
	return nil, domain.ErrTreeNotFound
}

func (r *treeRepoStub) UpdateRoot(ctx context.Context, id domain.Address, root domain.Hash) error {
	r.roots = append(r.roots, root)
	return nil
}

func testAddr(b byte) domain.Address {
	var a domain.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func stubAuthority(treeID domain.Address) (domain.AuthorityProof, error) {
	return domain.AuthorityProof{TreeID: treeID, Handle: treeID, Bump: 255}, nil
}
