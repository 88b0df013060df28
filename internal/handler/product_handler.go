package handler

import (
	"net/http"
	"strconv"

	"marketplace/internal/domain/model"
	"marketplace/internal/middleware"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if le, ok := usecase.AsLedgerError(err); ok {
		msg := le.Message
		if le.Code == usecase.CodeInternal {
			msg = "internal error"
		}
		return c.JSON(le.Status, ErrorResponse{Error: msg, Code: string(le.Code)})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: string(usecase.CodeInternal)})
}

// ProductCreateRequest は出品の入力
type ProductCreateRequest struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// PurchaseRequest の value が添付された支払額
type PurchaseRequest struct {
	Value int64 `json:"value"`
}

type MarketplaceResponse struct {
	Name         string `json:"name"`
	ProductCount int64  `json:"product_count"`
}

type CountResponse struct {
	ProductCount int64 `json:"product_count"`
}

// EventResponse は ProductCreated / ProductPurchased では商品の値を、
// ProductRemoved では id と removed だけを返す。
type EventResponse struct {
	Seq       int64   `json:"seq"`
	EventID   string  `json:"event_id"`
	Type      string  `json:"type"`
	ID        int64   `json:"id"`
	Name      *string `json:"name,omitempty"`
	Price     *int64  `json:"price,omitempty"`
	Owner     *string `json:"owner,omitempty"`
	Purchased *bool   `json:"purchased,omitempty"`
	Removed   *bool   `json:"removed,omitempty"`
}

func toEventResponse(e model.ProductEvent) EventResponse {
	out := EventResponse{
		Seq:     e.Seq,
		EventID: e.EventID,
		Type:    string(e.Type),
		ID:      e.ProductID,
	}
	if e.Type == model.EventProductRemoved {
		removed := e.Removed
		out.Removed = &removed
		return out
	}
	name, price, owner, purchased := e.Name, e.Price, e.Owner, e.Purchased
	out.Name = &name
	out.Price = &price
	out.Owner = &owner
	out.Purchased = &purchased
	return out
}

// /products と /marketplace のAPI
type ProductHandler struct {
	uc *usecase.MarketplaceUsecase
}

// DI
func NewProductHandler(uc *usecase.MarketplaceUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// ルートを登録。書き込み系は guards（認証・レート制限）を通す
func (h *ProductHandler) RegisterRoutes(e *echo.Echo, guards ...echo.MiddlewareFunc) {
	e.GET("/marketplace", h.marketplace)
	e.GET("/products", h.list)
	e.GET("/products/count", h.count)
	e.GET("/products/:id", h.detail)

	e.POST("/products", h.create, guards...)
	e.POST("/products/:id/purchase", h.purchase, guards...)
	e.DELETE("/products/:id", h.remove, guards...)
}

func (h *ProductHandler) marketplace(c echo.Context) error {
	n, err := h.uc.ProductCount(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, MarketplaceResponse{Name: h.uc.Name(), ProductCount: n})
}

func (h *ProductHandler) count(c echo.Context) error {
	n, err := h.uc.ProductCount(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, CountResponse{ProductCount: n})
}

func (h *ProductHandler) list(c echo.Context) error {
	// page（default 1）
	page := 1
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		page = p
	}

	// limit（default 20）
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = l
	}

	var purchased *bool
	if v := c.QueryParam("purchased"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid purchased"})
		}
		purchased = &b
	}

	out, err := h.uc.ListProducts(c.Request().Context(), usecase.ListProductsInput{
		Page:      page,
		Limit:     limit,
		Owner:     c.QueryParam("owner"),
		Purchased: purchased,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// 存在しない id はゼロ値の商品を 200 で返す
func (h *ProductHandler) detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	p, err := h.uc.Product(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) create(c echo.Context) error {
	var req ProductCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	caller, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	ev, err := h.uc.CreateProduct(c.Request().Context(), caller, usecase.CreateProductInput{
		Name:  req.Name,
		Price: req.Price,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, toEventResponse(ev))
}

func (h *ProductHandler) purchase(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req PurchaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	caller, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	ev, err := h.uc.PurchaseProduct(c.Request().Context(), caller, id, req.Value)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, toEventResponse(ev))
}

func (h *ProductHandler) remove(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	caller, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	ev, err := h.uc.RemoveProduct(c.Request().Context(), caller, id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, toEventResponse(ev))
}
