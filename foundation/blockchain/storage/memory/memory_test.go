package memory_test

import (
	"testing"

	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
	"github.com/ardanlabs/nullchain/foundation/blockchain/storage/memory"
	"github.com/stretchr/testify/require"
)

func Test_Memory(t *testing.T) {
	m := memory.New()

	value := []byte("value")

	var batch database.Batch
	batch.Put([]byte("a"), value)
	batch.Put([]byte("b"), value)
	batch.Delete([]byte("a"))
	require.NoError(t, m.Write(&batch))
	require.Equal(t, 1, m.Len())

	_, err := m.Get([]byte("a"))
	require.ErrorIs(t, err, database.ErrNotFound)

	// Values are copied in and out.
	value[0] = 'X'
	got, err := m.Get([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, "value", string(got))

	got[0] = 'Y'
	again, err := m.Get([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, "value", string(again))
}
