package http

import (
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/query"
	"fintrack/internal/services"
)

type createTransactionRequest struct {
	CategoryID int64       `json:"category_id"`
	Kind       string      `json:"kind"`
	Amount     AmountField `json:"amount"`
	Date       string      `json:"date"`
	Note       string      `json:"note"`
}

// toNewTransaction parses the request. Every unparseable field is reported;
// fields that parse are validated by the ledger.
func (req createTransactionRequest) toNewTransaction(userID int64) (services.NewTransaction, []string) {
	in := services.NewTransaction{
		UserID:     userID,
		CategoryID: req.CategoryID,
		Note:       sanitizeInput(req.Note),
	}
	var problems []string

	kind, err := core.ParseKind(req.Kind)
	if err != nil {
		problems = append(problems, core.ErrInvalidKind.Error())
	}
	in.Kind = kind

	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		problems = append(problems, core.ErrInvalidAmount.Error())
	}
	in.Amount = amount

	if strings.TrimSpace(req.Date) == "" {
		problems = append(problems, "date is required")
	} else if d, err := core.ParseDate(req.Date); err != nil {
		problems = append(problems, core.ErrInvalidDate.Error())
	} else {
		in.Date = d
	}

	if req.CategoryID <= 0 {
		problems = append(problems, core.ErrEmptyCategory.Error())
	}
	return in, problems
}

type transactionsResponse struct {
	Summary      query.Summary           `json:"summary"`
	Transactions []query.TransactionView `json:"transactions"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(ctx)

	rng, err := ParseDateRange(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var txs []core.Transaction
	if rng != nil {
		txs, err = s.deps.Reader.TransactionsBetween(ctx, uid, rng.From, rng.To)
	} else {
		txs, err = s.deps.Reader.TransactionsForUser(ctx, uid)
	}
	if err != nil {
		s.fail(w, r, err, log.OpList)
		return
	}
	cats, err := s.deps.Reader.CategoriesForUser(ctx, uid)
	if err != nil {
		s.fail(w, r, err, log.OpList)
		return
	}

	NewJSONResponse().Data(transactionsResponse{
		Summary:      query.Summarize(txs),
		Transactions: query.TransactionViews(txs, cats, 0),
	}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createTransactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	in, problems := req.toNewTransaction(userID(ctx))
	if len(problems) > 0 {
		ErrorResponse(http.StatusUnprocessableEntity, "validation failed", problems...).Write(w)
		return
	}

	t, err := s.deps.Ledger.AddTransaction(ctx, in)
	if err != nil {
		s.fail(w, r, err, log.OpCreate)
		return
	}

	fields := log.NewFields().WithTransaction(t.ID, t.CategoryID, string(t.Kind), t.Amount.String(), t.Date.String())
	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "Transaction recorded", fields.ToSlice()...)

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", r.URL.Path+"/"+strconv.FormatInt(t.ID, 10)).
		Data(t).
		Write(w)
}

// handleDeleteTransaction answers 204 whether or not the id existed.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := PathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.deps.Ledger.DeleteTransaction(ctx, userID(ctx), id); err != nil {
		s.fail(w, r, err, log.OpDelete)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Reader.CategoriesForUser(r.Context(), userID(r.Context()))
	if err != nil {
		s.fail(w, r, err, log.OpList)
		return
	}
	NewJSONResponse().Data(query.CategoryOptions(cats)).Write(w)
}
