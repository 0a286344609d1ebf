package classifier

import (
	"fmt"
	"strings"

	"solana-holder-tracker/internal/domain"
)

// Known protocol program IDs.
const (
	JupiterProgramID  = "JUP4Fb2cqiRUcaTHdrPC8h2gNsA2ETXiPDD33WcGuJB"
	RaydiumProgramID  = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	OrcaProgramID     = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	SerumProgramID    = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	MeteoraProgramID  = "M2mx93ekt1fmXSVkTrUL9xVFHkmME8HTUi5Cyc5aF7K"
	LifinityProgramID = "EewxydAPCCVuNEyrVN68PuSYdQ7wKn27V9Gjeoi8dy3S"
	AldrinProgramID   = "AMM55ShdkoGRB5jVYPxWJMUxHp3z3qKjqKjqKjqKjqKjqK"
	SaberProgramID    = "CJsLwbP1iu5DuUikHEJnLfANgKy6stB2uFgvBBHoyxwz"
)

// Protocol maps a protocol name to its program ID.
type Protocol struct {
	Name      string
	ProgramID string
}

// ProtocolTable is an ordered protocol list. Detection is first match in table order.
type ProtocolTable []Protocol

// DefaultProtocols returns the built-in protocol table.
func DefaultProtocols() ProtocolTable {
	return ProtocolTable{
		{Name: "Jupiter", ProgramID: JupiterProgramID},
		{Name: "Raydium", ProgramID: RaydiumProgramID},
		{Name: "Orca", ProgramID: OrcaProgramID},
		{Name: "Serum", ProgramID: SerumProgramID},
		{Name: "Meteora", ProgramID: MeteoraProgramID},
		{Name: "Lifinity", ProgramID: LifinityProgramID},
		{Name: "Aldrin", ProgramID: AldrinProgramID},
		{Name: "Saber", ProgramID: SaberProgramID},
	}
}

// Detect returns the name of the first table entry whose program ID appears in
// programIDs, or domain.ProtocolUnknown.
func (t ProtocolTable) Detect(programIDs []string) string {
	if len(programIDs) == 0 {
		return domain.ProtocolUnknown
	}
	present := make(map[string]struct{}, len(programIDs))
	for _, id := range programIDs {
		present[id] = struct{}{}
	}
	for _, p := range t {
		if _, ok := present[p.ProgramID]; ok {
			return p.Name
		}
	}
	return domain.ProtocolUnknown
}

// Names returns protocol names in table order.
func (t ProtocolTable) Names() []string {
	names := make([]string, len(t))
	for i, p := range t {
		names[i] = p.Name
	}
	return names
}

// ParseProtocolTable parses "Name=ProgramID" entries, preserving order.
func ParseProtocolTable(entries []string) (ProtocolTable, error) {
	table := make(ProtocolTable, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		name, id, ok := strings.Cut(e, "=")
		name, id = strings.TrimSpace(name), strings.TrimSpace(id)
		if !ok || name == "" || id == "" {
			return nil, fmt.Errorf("invalid protocol entry %q: want Name=ProgramID", e)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate protocol program id %q", id)
		}
		seen[id] = struct{}{}
		table = append(table, Protocol{Name: name, ProgramID: id})
	}
	return table, nil
}
