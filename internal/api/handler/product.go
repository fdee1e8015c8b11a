package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/svennapp/svennProductsFE/internal/api/request"
	"github.com/svennapp/svennProductsFE/internal/api/response"
	"github.com/svennapp/svennProductsFE/internal/gateway"
	"github.com/svennapp/svennProductsFE/internal/products"
)

// ProductClient is the product part of the backend. *gateway.Client
// satisfies it.
type ProductClient interface {
	products.Client
	ProductInfo(ctx context.Context, identifierType gateway.IdentifierType, code string) (*gateway.ProductInfo, error)
	BasicStats(ctx context.Context) (gateway.BasicStats, error)
	LatestProducts(ctx context.Context, skip, limit int) ([]gateway.ProductSummary, error)
}

type Product struct {
	client ProductClient
}

func NewProduct(client ProductClient) *Product {
	return &Product{client: client}
}

func searchParams(r *http.Request) gateway.ProductSearchParams {
	q := r.URL.Query()
	p := gateway.ProductSearchParams{
		Query:     q.Get("q"),
		SortBy:    gateway.SortField(q.Get("sort_by")),
		SortOrder: gateway.SortOrder(q.Get("sort_order")),
	}
	p.Limit, _ = strconv.Atoi(q.Get("limit"))
	p.Offset, _ = strconv.Atoi(q.Get("offset"))
	return p
}

// queryTooShortMessage is what the dashboard shows for a rejected term.
const queryTooShortMessage = "Search term must be a minimum 2 characters"

func (h *Product) Search(w http.ResponseWriter, r *http.Request) {
	resp, err := products.Search(r.Context(), h.client, searchParams(r))
	if errors.Is(err, products.ErrQueryTooShort) {
		response.WriteError(w, http.StatusBadRequest, queryTooShortMessage)
		return
	}
	if err != nil {
		response.WriteGatewayError(w, err, "Failed to search products")
		return
	}
	response.WriteJSON(w, http.StatusOK, resp)
}

func (h *Product) Info(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IdentifierType gateway.IdentifierType `validate:"required,oneof=nobb ean"`
		Code           string                 `validate:"required"`
	}
	req.IdentifierType = gateway.IdentifierType(r.URL.Query().Get("identifier_type"))
	req.Code = r.URL.Query().Get("code")
	if err := request.Validate(&req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := h.client.ProductInfo(r.Context(), req.IdentifierType, req.Code)
	if err != nil {
		response.WriteGatewayError(w, err, "Failed to fetch product info")
		return
	}
	response.WriteJSON(w, http.StatusOK, info)
}

func (h *Product) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.client.BasicStats(r.Context())
	if err != nil {
		response.WriteGatewayError(w, err, "Failed to fetch stats")
		return
	}
	response.WriteJSON(w, http.StatusOK, stats)
}

func (h *Product) Latest(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePaging(r, 10)
	latest, err := h.client.LatestProducts(r.Context(), p.Skip, p.Limit)
	if err != nil {
		response.WriteGatewayError(w, err, "Failed to fetch latest products")
		return
	}
	response.WriteJSON(w, http.StatusOK, latest)
}
