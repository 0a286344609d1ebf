package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-holder-tracker/internal/domain"
)

func TestDefaultProtocols_Order(t *testing.T) {
	assert.Equal(t,
		[]string{"Jupiter", "Raydium", "Orca", "Serum", "Meteora", "Lifinity", "Aldrin", "Saber"},
		DefaultProtocols().Names())
}

func TestProtocolTable_Detect(t *testing.T) {
	table := DefaultProtocols()

	tests := []struct {
		name     string
		programs []string
		want     string
	}{
		{"empty", nil, domain.ProtocolUnknown},
		{"no match", []string{"11111111111111111111111111111111"}, domain.ProtocolUnknown},
		{"single", []string{MeteoraProgramID}, "Meteora"},
		{"table order wins", []string{SaberProgramID, SerumProgramID}, "Serum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Detect(tt.programs))
		})
	}
}

func TestParseProtocolTable(t *testing.T) {
	table, err := ParseProtocolTable([]string{" Orca = " + OrcaProgramID, "Jupiter=" + JupiterProgramID})
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, Protocol{Name: "Orca", ProgramID: OrcaProgramID}, table[0])

	_, err = ParseProtocolTable([]string{"missing-separator"})
	assert.Error(t, err)

	_, err = ParseProtocolTable([]string{"A=x", "B=x"})
	assert.Error(t, err)

	_, err = ParseProtocolTable([]string{"=x"})
	assert.Error(t, err)
}
