package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/govlock/internal/adapters/repository/repotest"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

func TestFileRepository(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repotest.Store {
		repo, err := NewFileRepository(t.TempDir(), "")
		require.NoError(t, err)
		return repo
	})
}

func TestFileRepositoryReload(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	account := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	repo, err := NewFileRepository(root, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, GovlockDir), repo.Dir())

	op := &models.TimelockOperation{
		ID:         common.HexToHash("0x01"),
		Batch:      models.NewBatch(models.Call{Target: account}),
		ReadyPoint: 10,
	}
	require.NoError(t, repo.SaveOperation(ctx, op))
	require.NoError(t, repo.SaveMinDelay(ctx, 120))
	_, err = repo.GrantRole(ctx, models.RoleExecutor, account)
	require.NoError(t, err)

	for _, name := range []string{OperationsFile, TimelockFile, RolesFile} {
		_, err := os.Stat(filepath.Join(root, GovlockDir, name))
		assert.NoError(t, err, name)
		_, err = os.Stat(filepath.Join(root, GovlockDir, name+".tmp"))
		assert.True(t, os.IsNotExist(err), "temp file for %s left behind", name)
	}

	reopened, err := NewFileRepository(root, "")
	require.NoError(t, err)

	got, err := reopened.GetOperation(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.ReadyPoint)
	delay, ok, err := reopened.GetMinDelay(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(120), delay)
	has, err := reopened.HasRole(ctx, models.RoleExecutor, account)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestFileRepositoryCorruptFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, GovlockDir)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProposalsFile), []byte("{not json"), 0644))

	_, err := NewFileRepository(root, "")
	assert.Error(t, err)
}
