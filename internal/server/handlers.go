package server

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"tuma-ledger/internal/authority"
	"tuma-ledger/internal/bridge"
	"tuma-ledger/internal/errs"
	"tuma-ledger/internal/health"
	"tuma-ledger/internal/ledger"
	"tuma-ledger/internal/models"
	"tuma-ledger/internal/params"
	"tuma-ledger/internal/registry"
)

const callerHeader = "X-Caller-Address"

// APIHandlers collects the handler dependencies.
type APIHandlers struct {
	Transactions *ledger.Ledger
	Bridges      *bridge.Ledger
	Registry     *registry.Registry
	Params       *params.Store
	Gate         *authority.Gate
	Logger       *zerolog.Logger
}

// NewRouter wires the HTTP routes exposed by the ledger core.
func NewRouter(api *APIHandlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.LivenessHandler)
	mux.HandleFunc("GET /readyz", health.ReadinessHandler)

	mux.HandleFunc("POST /transactions", api.handleInitiateTransaction)
	mux.HandleFunc("GET /transactions/{id}", api.handleGetTransaction)
	mux.HandleFunc("POST /transactions/{id}/process", api.handleProcessTransaction)
	mux.HandleFunc("POST /transactions/{id}/fail", api.handleFailTransaction)
	mux.HandleFunc("POST /transactions/{id}/cancel", api.handleCancelTransaction)
	mux.HandleFunc("GET /users/{address}/transactions", api.handleUserTransactions)

	mux.HandleFunc("POST /bridges", api.handleInitiateBridge)
	mux.HandleFunc("GET /bridges/{id}", api.handleGetBridge)
	mux.HandleFunc("POST /bridges/{id}/complete", api.handleCompleteBridge)
	mux.HandleFunc("POST /bridges/{id}/fail", api.handleFailBridge)
	mux.HandleFunc("POST /bridges/{id}/cancel", api.handleCancelBridge)
	mux.HandleFunc("GET /users/{address}/bridges", api.handleUserBridges)

	mux.HandleFunc("POST /registry/currencies", api.handleAddCurrency)
	mux.HandleFunc("POST /registry/networks", api.handleAddNetwork)
	mux.HandleFunc("POST /registry/pairs", api.handleAddNetworkPair)
	mux.HandleFunc("PUT /params/transaction-fee", api.handleUpdateTransactionFee)
	mux.HandleFunc("PUT /params/bridge-fee", api.handleUpdateBridgeFee)
	mux.HandleFunc("PUT /params/transaction-limits", api.handleUpdateTransactionLimits)
	mux.HandleFunc("PUT /params/bridge-limits", api.handleUpdateBridgeLimits)
	mux.HandleFunc("POST /authority/transfer", api.handleTransferAuthority)

	return mux
}

type initiateTransactionRequest struct {
	Amount          string `json:"amount"`
	SourceCurrency  string `json:"source_currency"`
	TargetCurrency  string `json:"target_currency"`
	TransactionType string `json:"transaction_type"`
}

func (api *APIHandlers) handleInitiateTransaction(w http.ResponseWriter, r *http.Request) {
	var req initiateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		respondError(w, http.StatusBadRequest, "amount must be a positive decimal integer string")
		return
	}
	id, err := api.Transactions.InitiateTransaction(r.Header.Get(callerHeader),
		amount, req.SourceCurrency, req.TargetCurrency, models.TransactionType(req.TransactionType))
	if err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (api *APIHandlers) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	tx, err := api.Transactions.GetTransaction(id)
	if err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

type finalizeRequest struct {
	ExternalReference string `json:"external_reference"`
	Reason            string `json:"reason"`
}

func (api *APIHandlers) handleProcessTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := api.Transactions.ProcessTransaction(r.Header.Get(callerHeader), id, req.ExternalReference); err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "status": models.StatusCompleted})
}

func (api *APIHandlers) handleFailTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := api.Transactions.FailTransaction(r.Header.Get(callerHeader), id, req.Reason); err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "status": models.StatusFailed})
}

func (api *APIHandlers) handleCancelTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := api.Transactions.CancelTransaction(r.Header.Get(callerHeader), id); err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "status": models.StatusCancelled})
}

func (api *APIHandlers) handleUserTransactions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, api.Transactions.GetUserTransactions(r.PathValue("address")))
}

type initiateBridgeRequest struct {
	Amount        string `json:"amount"`
	SourceNetwork string `json:"source_network"`
	TargetNetwork string `json:"target_network"`
	Currency      string `json:"currency"`
}

func (api *APIHandlers) handleInitiateBridge(w http.ResponseWriter, r *http.Request) {
	var req initiateBridgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		respondError(w, http.StatusBadRequest, "amount must be a positive decimal integer string")
		return
	}
	id, err := api.Bridges.InitiateBridge(r.Context(), r.Header.Get(callerHeader),
		amount, req.SourceNetwork, req.TargetNetwork, req.Currency)
	if err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (api *APIHandlers) handleGetBridge(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	br, err := api.Bridges.GetBridgeRequest(id)
	if err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, br)
}

func (api *APIHandlers) handleCompleteBridge(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := api.Bridges.CompleteBridge(r.Header.Get(callerHeader), id, req.ExternalReference); err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "status": models.StatusCompleted})
}

func (api *APIHandlers) handleFailBridge(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := api.Bridges.FailBridge(r.Header.Get(callerHeader), id, req.Reason); err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "status": models.StatusFailed})
}

func (api *APIHandlers) handleCancelBridge(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := api.Bridges.CancelBridge(r.Header.Get(callerHeader), id); err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "status": models.StatusCancelled})
}

func (api *APIHandlers) handleUserBridges(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, api.Bridges.GetUserBridgeRequests(r.PathValue("address")))
}

type registryRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	AssetRef string `json:"asset_ref"`
	Source   string `json:"source"`
	Target   string `json:"target"`
}

func (api *APIHandlers) handleAddCurrency(w http.ResponseWriter, r *http.Request) {
	var req registryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := api.Registry.AddSupportedCurrency(r.Header.Get(callerHeader), req.Code, req.AssetRef); err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"currency": req.Code})
}

func (api *APIHandlers) handleAddNetwork(w http.ResponseWriter, r *http.Request) {
	var req registryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := api.Registry.AddSupportedNetwork(r.Header.Get(callerHeader), req.Name, req.AssetRef); err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"network": req.Name})
}

func (api *APIHandlers) handleAddNetworkPair(w http.ResponseWriter, r *http.Request) {
	var req registryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := api.Registry.AddNetworkPair(r.Header.Get(callerHeader), req.Source, req.Target); err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"source": req.Source, "target": req.Target})
}

type paramsRequest struct {
	Bps uint64 `json:"bps"`
	Min string `json:"min"`
	Max string `json:"max"`
}

func (api *APIHandlers) handleUpdateTransactionFee(w http.ResponseWriter, r *http.Request) {
	var req paramsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := api.Params.UpdateTransactionFee(r.Header.Get(callerHeader), req.Bps); err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transaction_fee_bps": req.Bps})
}

func (api *APIHandlers) handleUpdateBridgeFee(w http.ResponseWriter, r *http.Request) {
	var req paramsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := api.Params.UpdateBridgeFee(r.Header.Get(callerHeader), req.Bps); err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"bridge_fee_bps": req.Bps})
}

func (api *APIHandlers) handleUpdateTransactionLimits(w http.ResponseWriter, r *http.Request) {
	api.updateLimits(w, r, api.Params.UpdateTransactionLimits)
}

func (api *APIHandlers) handleUpdateBridgeLimits(w http.ResponseWriter, r *http.Request) {
	api.updateLimits(w, r, api.Params.UpdateBridgeLimits)
}

func (api *APIHandlers) updateLimits(w http.ResponseWriter, r *http.Request,
	update func(caller string, min, max *big.Int) error) {
	var req paramsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	minAmount, okMin := parseAmount(req.Min)
	maxAmount, okMax := parseAmount(req.Max)
	if !okMin || !okMax {
		respondError(w, http.StatusBadRequest, "limits must be positive decimal integer strings")
		return
	}
	if err := update(r.Header.Get(callerHeader), minAmount, maxAmount); err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"min": req.Min, "max": req.Max})
}

type transferAuthorityRequest struct {
	NewAuthority string `json:"new_authority"`
}

func (api *APIHandlers) handleTransferAuthority(w http.ResponseWriter, r *http.Request) {
	var req transferAuthorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := api.Gate.TransferAuthority(r.Header.Get(callerHeader), req.NewAuthority); err != nil {
		api.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"authority": api.Gate.Authority()})
}

func (api *APIHandlers) respondLedgerError(w http.ResponseWriter, err error) {
	code := errs.CodeOf(err)
	status := statusForCode(code)
	if code == errs.UNAUTHORIZED {
		api.Logger.Warn().Err(err).Msg("Unauthorized ledger call")
	}
	if status == http.StatusInternalServerError {
		api.Logger.Error().Err(err).Msg("Ledger call failed")
	}
	respondJSON(w, status, map[string]any{"error": err.Error(), "code": string(code)})
}

func statusForCode(code errs.Code) int {
	switch code {
	case errs.UNAUTHORIZED:
		return http.StatusForbidden
	case errs.NOT_FOUND:
		return http.StatusNotFound
	case errs.ALREADY_FINALIZED, errs.INVALID_STATE:
		return http.StatusConflict
	case errs.AMOUNT_TOO_SMALL, errs.AMOUNT_TOO_LARGE, errs.CURRENCY_NOT_SUPPORTED,
		errs.NETWORK_NOT_SUPPORTED, errs.NETWORK_PAIR_NOT_SUPPORTED, errs.SAME_NETWORK,
		errs.INSUFFICIENT_ALLOWANCE, errs.INVALID_AMOUNT, errs.INVALID_ADDRESS,
		errs.INVALID_TYPE, errs.LIMIT_EXCEEDED, errs.INVALID_RANGE:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func parseID(raw string) (uint64, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	return id, err == nil
}

func parseAmount(raw string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, false
	}
	return amount, true
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"error": message})
}
