package public

import (
	"github.com/ardanlabs/nullchain/foundation/blockchain/digest"
	"github.com/ardanlabs/nullchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/nullchain/foundation/validate"
)

type genesisInfo struct {
	genesis.Genesis
	BurnAddress string        `json:"burn_address"`
	Hash        digest.Digest `json:"hash"`
}

type chainInfo struct {
	Height       uint64        `json:"height"`
	Best         digest.Digest `json:"best"`
	Timestamp    uint64        `json:"timestamp"`
	Bits         string        `json:"bits"`
	NextBits     string        `json:"next_bits"`
	TxCount      int           `json:"tx_count"`
	MinerAddress string        `json:"miner_address"`
}

type targetInfo struct {
	Bits     string        `json:"bits"`
	Exponent uint8         `json:"exponent"`
	Mantissa uint32        `json:"mantissa"`
	Target   digest.Digest `json:"target"`
}

type adjustRequest struct {
	Bits   string `json:"bits" validate:"required"`
	Actual uint64 `json:"actual"`
	Target uint64 `json:"target" validate:"required,gt=0"`
}

// Validate checks the request fields against their tags.
func (ar adjustRequest) Validate() error {
	return validate.Check(ar)
}

type adjustResponse struct {
	OldBits string `json:"old_bits"`
	NewBits string `json:"new_bits"`
	Actual  uint64 `json:"actual"`
	Target  uint64 `json:"target"`
}
