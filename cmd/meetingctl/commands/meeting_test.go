package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/johnquangdev/meeting-rag/errors"
	"github.com/johnquangdev/meeting-rag/internal/infrastructure/storage"
)

func setupStorage(t *testing.T, ids ...string) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("STORAGE_TYPE", "fs")
	t.Setenv("STORAGE_ROOT", root)
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("DB_ENABLED", "false")

	store, err := storage.NewFileSystemStore(root, nil)
	require.NoError(t, err)
	for _, id := range ids {
		require.NoError(t, store.PutAll(context.Background(), id, map[string][]byte{
			id + "/transcript.json": []byte(`{}`),
		}))
	}
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := Root()
	root.Writer = &out
	root.ErrWriter = &out
	err := root.Run(context.Background(), append([]string{"meetingctl"}, args...))
	return out.String(), err
}

func TestList(t *testing.T) {
	setupStorage(t, "meeting_b", "meeting_a")

	out, err := run(t, "list", "--env", "")
	require.NoError(t, err)
	assert.Equal(t, "meeting_a\nmeeting_b\n", out)
}

func TestDelete(t *testing.T) {
	setupStorage(t, "meeting_a")

	out, err := run(t, "delete", "--env", "", "--id", "meeting_a")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted meeting_a")

	out, err = run(t, "list", "--env", "")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = run(t, "delete", "--env", "", "--id", "meeting_a")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_MEETING_NOT_FOUND))
}

func TestShow_UnknownMeeting(t *testing.T) {
	setupStorage(t)

	_, err := run(t, "show", "--env", "", "--id", "meeting_missing")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_MEETING_NOT_FOUND))
}

func TestProcess_RequiresAudioArgument(t *testing.T) {
	setupStorage(t)

	_, err := run(t, "process", "--env", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audio file")
}
