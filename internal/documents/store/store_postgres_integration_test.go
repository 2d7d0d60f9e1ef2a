//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"rolesync/internal/documents"
	"rolesync/internal/documents/store"
	"rolesync/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "document_changes", "documents"))
}

var abc = documents.Ref{Collection: "users", ID: "abc123"}

func (s *PostgresStoreSuite) pendingChanges() int {
	var n int
	err := s.postgres.DB.QueryRow(`SELECT count(*) FROM document_changes WHERE processed_at IS NULL`).Scan(&n)
	s.Require().NoError(err)
	return n
}

func (s *PostgresStoreSuite) TestSetAndGet() {
	ctx := context.Background()

	s.Run("missing document is not found", func() {
		_, err := s.store.Get(ctx, abc)
		s.True(documents.IsNotFound(err))
	})

	s.Run("merge creates then preserves unrelated fields", func() {
		s.Require().NoError(s.store.Set(ctx, abc, documents.Fields{"nickname": "x"}, documents.MergeFields))
		s.Require().NoError(s.store.Set(ctx, abc, documents.Fields{"role": "guest"}, documents.MergeFields))

		got, err := s.store.Get(ctx, abc)
		s.Require().NoError(err)
		s.Equal(documents.Fields{"nickname": "x", "role": "guest"}, got)
	})

	s.Run("plain set replaces", func() {
		s.Require().NoError(s.store.Set(ctx, abc, documents.Fields{"role": "admin"}, documents.SetOptions{}))

		got, err := s.store.Get(ctx, abc)
		s.Require().NoError(err)
		s.Equal(documents.Fields{"role": "admin"}, got)
	})

	s.Run("invalid ref is rejected", func() {
		err := s.store.Set(ctx, documents.Ref{Collection: "users"}, documents.Fields{}, documents.MergeFields)
		s.ErrorIs(err, documents.ErrInvalidPath)
	})
}

func (s *PostgresStoreSuite) TestTriggerRecordsUpdatesOnly() {
	ctx := context.Background()

	s.Require().NoError(s.store.Set(ctx, abc, documents.Fields{"role": "guest"}, documents.MergeFields))
	s.Equal(0, s.pendingChanges(), "insert is not an update")

	s.Require().NoError(s.store.Set(ctx, abc, documents.Fields{"role": "guest"}, documents.MergeFields))
	s.Equal(0, s.pendingChanges(), "identical write is not recorded")

	s.Require().NoError(s.store.Set(ctx, abc, documents.Fields{"role": "admin"}, documents.MergeFields))
	s.Equal(1, s.pendingChanges())
}

func (s *PostgresStoreSuite) TestList() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, documents.Ref{Collection: "users", ID: "b"}, documents.Fields{"role": "admin"}, documents.SetOptions{}))
	s.Require().NoError(s.store.Set(ctx, documents.Ref{Collection: "users", ID: "a"}, documents.Fields{"role": "guest"}, documents.SetOptions{}))
	s.Require().NoError(s.store.Set(ctx, documents.Ref{Collection: "teams", ID: "t"}, documents.Fields{}, documents.SetOptions{}))

	var ids []string
	err := s.store.List(ctx, "users", func(id string, _ documents.Fields) error {
		ids = append(ids, id)
		return nil
	})
	s.Require().NoError(err)
	s.Equal([]string{"a", "b"}, ids)
	s.NoError(s.store.Health(ctx))
}
