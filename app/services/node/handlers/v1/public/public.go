// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/nullchain/business/web/errs"
	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
	"github.com/ardanlabs/nullchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/nullchain/foundation/blockchain/digest"
	"github.com/ardanlabs/nullchain/foundation/blockchain/signature"
	"github.com/ardanlabs/nullchain/foundation/blockchain/state"
	"github.com/ardanlabs/nullchain/foundation/events"
	"github.com/ardanlabs/nullchain/foundation/validate"
	"github.com/ardanlabs/nullchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// maxBlocksPerList bounds the number of blocks a list request returns.
const maxBlocksPerList = 100

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.Genesis()

	block, err := h.State.BlockByHeight(0)
	if err != nil {
		return errs.FromChain(err)
	}

	info := genesisInfo{
		Genesis:     gen,
		BurnAddress: signature.PubKeyHash(gen.BurnAddress).Address(),
		Hash:        block.Hash,
	}

	return web.Respond(ctx, w, info, http.StatusOK)
}

// Chain returns the state of the chain tip.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	tip := h.State.Tip()

	next, err := h.State.NextBits(tip.Height + 1)
	if err != nil {
		return errs.FromChain(err)
	}

	info := chainInfo{
		Height:       tip.Height,
		Best:         tip.Hash,
		Timestamp:    tip.Header.Timestamp,
		Bits:         difficulty.FromBits(tip.Header.Bits).String(),
		NextBits:     difficulty.FromBits(next).String(),
		TxCount:      len(tip.Transactions),
		MinerAddress: h.State.MinerAddress(),
	}

	return web.Respond(ctx, w, info, http.StatusOK)
}

// BlockByHeight returns the block at the specified height.
func (h Handlers) BlockByHeight(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := strconv.ParseUint(web.Param(r, "height"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid height: %w", err), http.StatusBadRequest)
	}

	bd, err := h.State.BlockByHeight(height)
	if err != nil {
		return errs.FromChain(err)
	}

	return web.Respond(ctx, w, bd, http.StatusOK)
}

// BlockByHash returns the block stored under the specified hash.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := digest.FromHex(web.Param(r, "hash"))
	if err != nil {
		return errs.FromChain(err)
	}

	bd, err := h.State.BlockByHash(hash)
	if err != nil {
		return errs.FromChain(err)
	}

	return web.Respond(ctx, w, bd, http.StatusOK)
}

// TransactionProof returns the merkle inclusion proof of a transaction in the
// block at the specified height.
func (h Handlers) TransactionProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := strconv.ParseUint(web.Param(r, "height"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid height: %w", err), http.StatusBadRequest)
	}

	txID, err := digest.FromHex(web.Param(r, "txid"))
	if err != nil {
		return errs.FromChain(err)
	}

	proof, err := h.State.TransactionProof(height, txID)
	if err != nil {
		return errs.FromChain(err)
	}

	return web.Respond(ctx, w, proof, http.StatusOK)
}

// BlocksByHeight returns the blocks between the specified from/to heights.
// Either value can be "latest".
func (h Handlers) BlocksByHeight(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := parseHeight(web.Param(r, "from"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	to, err := parseHeight(web.Param(r, "to"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if from != state.QueryLatest && to >= from && to-from >= maxBlocksPerList {
		to = from + maxBlocksPerList - 1
	}

	blocks, err := h.State.QueryBlocksByHeight(from, to)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// SubmitBlock takes a block mined somewhere else, validates it and if that
// passes, adds the block to the chain.
func (h Handlers) SubmitBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var block database.Block
	if err := web.Decode(r, &block); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit block", "traceid", v.TraceID, "blk", block.Hash(), "prevblk", block.Header.PrevBlockHash, "txs", len(block.Transactions))

	bd, err := h.State.AcceptBlock(block)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("block not accepted: %w", err), http.StatusNotAcceptable)
	}

	return web.Respond(ctx, w, bd, http.StatusOK)
}

// Target returns the target encoded by the specified compact bits.
func (h Handlers) Target(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	bits, err := difficulty.ParseBits(web.Param(r, "bits"))
	if err != nil {
		return errs.FromChain(err)
	}

	target, err := difficulty.BitsToTarget(bits)
	if err != nil {
		return errs.FromChain(err)
	}

	c := difficulty.FromBits(bits)
	info := targetInfo{
		Bits:     c.String(),
		Exponent: c.Exponent,
		Mantissa: c.Mantissa,
		Target:   target,
	}

	return web.Respond(ctx, w, info, http.StatusOK)
}

// Adjust computes the compact bits for the next interval from the time the
// last interval took.
func (h Handlers) Adjust(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req adjustRequest
	if err := web.Decode(r, &req); err != nil {
		if validate.IsFieldErrors(err) {
			return err
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	bits, err := difficulty.ParseBits(req.Bits)
	if err != nil {
		return errs.FromChain(err)
	}

	newBits, err := difficulty.Adjust(bits, req.Actual, req.Target)
	if err != nil {
		return errs.FromChain(err)
	}

	resp := adjustResponse{
		OldBits: difficulty.FromBits(bits).String(),
		NewBits: difficulty.FromBits(newBits).String(),
		Actual:  req.Actual,
		Target:  req.Target,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// StartMining signals the worker to start a mining operation.
func (h Handlers) StartMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.State.Worker == nil {
		return errs.NewTrusted(errors.New("mining is not available on this node"), http.StatusServiceUnavailable)
	}

	h.State.Worker.SignalStartMining()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

func parseHeight(s string) (uint64, error) {
	if s == "latest" || s == "" {
		return state.QueryLatest, nil
	}

	height, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid height %q: %w", s, err)
	}

	return height, nil
}
