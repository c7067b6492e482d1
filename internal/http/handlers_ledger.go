package http

import (
	"context"
	"net/http"

	"wealthtrack/internal/core"
	"wealthtrack/internal/ledger"
)

// handleCreate decodes a T, lets prepare fill fields taken from the path and
// answers 201 with the stored record.
func handleCreate[T any](create func(context.Context, T) (T, error), prepare func(*T, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var v T
		if err := DecodeJSON(w, r, &v); err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		if prepare != nil {
			prepare(&v, PathID(r))
		}
		created, err := create(r.Context(), v)
		if err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		NewResponse().Status(http.StatusCreated).JSON(created).Write(w)
	}
}

// handleUpdate replaces the record named by the path id.
func handleUpdate[T any](update func(context.Context, T) error, setID func(*T, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var v T
		if err := DecodeJSON(w, r, &v); err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		setID(&v, PathID(r))
		if err := update(r.Context(), v); err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		NewResponse().JSON(v).Write(w)
	}
}

func handleGet[T any](get func(context.Context, string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := get(r.Context(), PathID(r))
		if err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		NewResponse().JSON(v).Write(w)
	}
}

func handleDelete(del func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := del(r.Context(), PathID(r)); err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		NewResponse().Status(http.StatusNoContent).Write(w)
	}
}

// withProperty answers 404 unless the {id} property exists.
func (s *Server) withProperty(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.store().GetProperty(r.Context(), PathID(r)); err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		next(w, r)
	}
}

// listResponse wraps list results so an empty list is [] and never null.
func listResponse[T any](items []T) *ResponseBuilder {
	if items == nil {
		items = []T{}
	}
	return NewResponse().JSON(map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	ps, err := s.store().ListProperties(r.Context())
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	listResponse(ps).Write(w)
}

func (s *Server) handleListRentals(w http.ResponseWriter, r *http.Request) {
	s.withProperty(func(w http.ResponseWriter, r *http.Request) {
		q := NewQueryParams(r)
		dr := q.DateRange()
		if err := q.Err(); err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		all, err := s.store().ListRentalIncomes(r.Context(), dr)
		if err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		listResponse(ofProperty(all, PathID(r), func(x core.RentalIncome) string { return x.PropertyID })).Write(w)
	})(w, r)
}

func (s *Server) handleListPropertyExpenses(w http.ResponseWriter, r *http.Request) {
	s.withProperty(func(w http.ResponseWriter, r *http.Request) {
		q := NewQueryParams(r)
		dr := q.DateRange()
		if err := q.Err(); err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		all, err := s.store().ListPropertyExpenses(r.Context(), dr)
		if err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		listResponse(ofProperty(all, PathID(r), func(x core.PropertyExpense) string { return x.PropertyID })).Write(w)
	})(w, r)
}

func (s *Server) handleListMortgages(w http.ResponseWriter, r *http.Request) {
	s.withProperty(func(w http.ResponseWriter, r *http.Request) {
		all, err := s.store().ListMortgages(r.Context())
		if err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		listResponse(ofProperty(all, PathID(r), func(x core.Mortgage) string { return x.PropertyID })).Write(w)
	})(w, r)
}

func ofProperty[T any](records []T, propertyID string, idOf func(T) string) []T {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if idOf(rec) == propertyID {
			out = append(out, rec)
		}
	}
	return out
}

func (s *Server) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	invs, err := s.store().ListInvestments(r.Context())
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	listResponse(invs).Write(w)
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	handleListRange(w, r, s.store().ListIncomes)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	handleListRange(w, r, s.store().ListExpenses)
}

// handleListRange lists records dated within ?from= and ?to=.
func handleListRange[T any](w http.ResponseWriter, r *http.Request, list func(context.Context, ledger.DateRange) ([]T, error)) {
	q := NewQueryParams(r)
	dr := q.DateRange()
	if err := q.Err(); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	items, err := list(r.Context(), dr)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	listResponse(items).Write(w)
}
