package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ewhitaker/rallyup/internal/auth"
	"github.com/ewhitaker/rallyup/internal/leaderboard"
	"github.com/ewhitaker/rallyup/internal/model"
	"github.com/ewhitaker/rallyup/internal/store"
	"github.com/ewhitaker/rallyup/internal/websocket"
)

type ProductHandler struct {
	productStore *store.ProductStore
	saleStore    *store.SaleStore
	teamStore    *store.TeamStore
	leaderboard  *leaderboard.Service
	broadcaster  leaderboard.Broadcaster
	logger       *slog.Logger
}

func NewProductHandler(ps *store.ProductStore, ss *store.SaleStore, ts *store.TeamStore, lb *leaderboard.Service, b leaderboard.Broadcaster, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{productStore: ps, saleStore: ss, teamStore: ts, leaderboard: lb, broadcaster: b, logger: logger}
}

func (h *ProductHandler) broadcast(msg websocket.Message) {
	if h.broadcaster != nil {
		h.broadcaster.Broadcast(msg)
	}
}

type productRequest struct {
	Name          string `json:"name"`
	Price         int    `json:"price"`
	PointsPerUnit int    `json:"points_per_unit"`
	Inventory     int    `json:"inventory"`
	Active        bool   `json:"active"`
}

func (r *productRequest) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return "name is required"
	}
	if r.Price < 0 || r.PointsPerUnit < 0 || r.Inventory < 0 {
		return "price, points_per_unit, and inventory must be >= 0"
	}
	return ""
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	product, err := h.productStore.Create(req.Name, req.Price, req.PointsPerUnit, req.Inventory, req.Active)
	if err != nil {
		h.logger.Error("create product", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.broadcast(websocket.NewMessage("product", "created", product.ID, nil))

	writeJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.productStore.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.productStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	product, err := h.productStore.Update(id, req.Name, req.Price, req.PointsPerUnit, req.Inventory, req.Active)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	h.broadcast(websocket.NewMessage("product", "updated", id, nil))

	writeJSON(w, http.StatusOK, product)
}

// CreateSale decrements inventory, records the sale, and awards ledger points
// atomically.
func (h *ProductHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int64 `json:"product_id"`
		TeamID    int64 `json:"team_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	team, err := h.teamStore.GetByID(req.TeamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get team")
		return
	}
	if team == nil {
		writeError(w, http.StatusNotFound, "team not found")
		return
	}

	soldBy := auth.UserID(r.Context())
	sale, err := h.saleStore.Create(req.ProductID, req.TeamID, req.Quantity, &soldBy)
	if errors.Is(err, store.ErrInsufficientInventory) {
		writeError(w, http.StatusBadRequest, "insufficient inventory")
		return
	}
	if err != nil {
		h.logger.Error("create sale", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create sale")
		return
	}
	if sale == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.broadcast(websocket.NewMessage("sale", "created", sale.ID, nil))
	h.leaderboard.RecomputeAndBroadcast()

	writeJSON(w, http.StatusCreated, sale)
}

func (h *ProductHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	teamID, err := parseTeamFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid team_id")
		return
	}

	sales, err := h.saleStore.List(teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sales")
		return
	}
	if sales == nil {
		sales = []model.Sale{}
	}
	writeJSON(w, http.StatusOK, sales)
}

// DeleteSale reverses a mistaken sale: inventory restored, ledger entry removed.
func (h *ProductHandler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.saleStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get sale")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "sale not found")
		return
	}

	if err := h.saleStore.Delete(id); err != nil {
		h.logger.Error("delete sale", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete sale")
		return
	}

	h.broadcast(websocket.NewMessage("sale", "deleted", id, nil))
	h.leaderboard.RecomputeAndBroadcast()

	w.WriteHeader(http.StatusNoContent)
}
