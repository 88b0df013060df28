package handler

import (
	"net/http"
	"strconv"

	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

type BalanceResponse struct {
	Identity string `json:"identity"`
	Balance  int64  `json:"balance"`
}

type EventListResponse struct {
	Items []EventResponse `json:"items"`
}

// /events と /accounts の読み取りAPI
type LedgerHandler struct {
	uc *usecase.MarketplaceUsecase
}

func NewLedgerHandler(uc *usecase.MarketplaceUsecase) *LedgerHandler {
	return &LedgerHandler{uc: uc}
}

func (h *LedgerHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/events", h.events)
	e.GET("/accounts/:identity/balance", h.balance)
}

func (h *LedgerHandler) events(c echo.Context) error {
	in := usecase.ListEventsInput{Type: c.QueryParam("type")}

	if v := c.QueryParam("product_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
		}
		in.ProductID = &id
	}
	if v := c.QueryParam("after"); v != "" {
		after, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid after"})
		}
		in.AfterSeq = after
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		in.Limit = l
	}

	events, err := h.uc.Events(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}

	out := EventListResponse{Items: make([]EventResponse, 0, len(events))}
	for _, e := range events {
		out.Items = append(out.Items, toEventResponse(e))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LedgerHandler) balance(c echo.Context) error {
	identity := c.Param("identity")

	b, err := h.uc.Balance(c.Request().Context(), identity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, BalanceResponse{Identity: identity, Balance: b})
}
