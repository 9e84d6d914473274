package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corpact/ruleflow/pkg/api"
)

type (
	// LogUnit is a no-op unit that logs each packet it sees. It exists so
	// a freshly deployed engine has at least one unit to wire rules to
	LogUnit struct{}

	// ConsensusGate blocks its step until the coordinator's vote threshold
	// is reached for the packet's transaction. Rules using it should run
	// under the CONSENSUS strategy so the wait does not stall sibling work
	ConsensusGate struct {
		coord *Coordinator
	}
)

// Packet fields read by the built-in units
const (
	KeyTxID      = "tx_id"
	KeyNetAmount = "Net_Amount"
)

var ErrConsensusNotReached = errors.New("consensus not reached")

func (u *LogUnit) ID() api.UnitID {
	return "log-unit"
}

func (u *LogUnit) Execute(
	_ context.Context, ec *Context, p *api.Packet,
) error {
	slog.Info("Packet observed",
		slog.String("packet_id", p.ID),
		slog.String("step_prefix", ec.String(KeyStepPrefix)))
	return nil
}

// NewConsensusGate creates the approval gate bound to a coordinator
func NewConsensusGate(coord *Coordinator) *ConsensusGate {
	return &ConsensusGate{coord: coord}
}

func (u *ConsensusGate) ID() api.UnitID {
	return "consensus-gate"
}

// Execute waits for approval of the packet's transaction. The transaction
// id defaults to the job id when the packet carries none
func (u *ConsensusGate) Execute(
	ctx context.Context, ec *Context, p *api.Packet,
) error {
	txID := api.TxID(api.CoerceString(p.Data[KeyTxID]))
	if txID == "" {
		txID = api.TxID(ec.JobID())
	}
	amount := api.CoerceAmount(p.Data[KeyNetAmount])

	if !u.coord.Wait(ctx, txID, amount) {
		return fmt.Errorf("%w: %s", ErrConsensusNotReached, txID)
	}
	return nil
}
