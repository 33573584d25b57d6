package listing

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/numrent/internal/escrow"
	"github.com/MrJamesThe3rd/numrent/internal/http/middleware"
	"github.com/MrJamesThe3rd/numrent/internal/http/param"
	"github.com/MrJamesThe3rd/numrent/internal/http/respond"
	"github.com/MrJamesThe3rd/numrent/internal/importer"
	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/listing"
	"github.com/MrJamesThe3rd/numrent/internal/money"
)

// maxUpload bounds the size of an imported stock file.
const maxUpload = 2 << 20

type Handler struct {
	svc       *listing.Service
	importSvc *importer.Service
	escrow    *escrow.Service
}

func NewHandler(svc *listing.Service, importSvc *importer.Service, escrow *escrow.Service) *Handler {
	return &Handler{svc: svc, importSvc: importSvc, escrow: escrow}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Post("/import", h.importFile)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/purchase", h.purchase)
}

type createListingRequest struct {
	Service       string `json:"service"`
	DurationHours int    `json:"duration_hours"`
	Price         string `json:"price"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	svc, err := ledger.ParseService(req.Service)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	price, err := money.ParsePositive(req.Price)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	l, err := h.svc.Create(r.Context(), middleware.Principal(r).UserID, listing.CreateParams{
		Service:       svc,
		DurationHours: req.DurationHours,
		Price:         price,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, respond.Listing(l))
}

type importResponse struct {
	Imported int                       `json:"imported"`
	Listings []respond.ListingResponse `json:"listings"`
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		respond.BadRequest(w, "failed to parse form: "+err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respond.BadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	params, err := h.importSvc.Import(importer.Format(r.FormValue("format")), file)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	created, err := h.svc.CreateBatch(r.Context(), middleware.Principal(r).UserID, params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, importResponse{
		Imported: len(created),
		Listings: respond.Listings(created),
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter listing.Filter

	if s := q.Get("service"); s != "" {
		svc, err := ledger.ParseService(s)
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		filter.Service = &svc
	}

	if s := q.Get("seller"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			respond.BadRequest(w, "invalid seller")
			return
		}

		filter.SellerID = &id
	}

	limit, err := param.Limit(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	listings := make([]*ledger.Listing, 0, limit)

	for l, err := range h.svc.FindActive(r.Context(), filter, ledger.ListingOrder(q.Get("order"))) {
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		listings = append(listings, l)
		if len(listings) == limit {
			break
		}
	}

	respond.JSON(w, http.StatusOK, respond.Listings(listings))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := param.UUID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	l, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.Listing(l))
}

func (h *Handler) purchase(w http.ResponseWriter, r *http.Request) {
	id, err := param.UUID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	t, err := h.escrow.Purchase(r.Context(), middleware.Principal(r).UserID, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, respond.Transaction(t))
}
