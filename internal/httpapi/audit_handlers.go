package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"authline.org/internal/auditlog"
	"authline.org/internal/identity"
)

// handleAuditQuery serves GET /sso/log: a filtered, paged view over the
// audit trail, always scoped to the caller's tenant.
func (a *API) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}

	q := auditlog.Query{TenantID: principal.User.TenantID}
	params := r.URL.Query()

	var err error
	if q.Page, err = intParam(params.Get("page"), 0); err != nil {
		writeError(w, r, http.StatusBadRequest, "page must be an integer")
		return
	}
	if q.PageSize, err = intParam(params.Get("pageSize"), 10); err != nil {
		writeError(w, r, http.StatusBadRequest, "pageSize must be an integer")
		return
	}
	if q.StartTS, err = int64Param(params.Get("createdAtStartTs")); err != nil {
		writeError(w, r, http.StatusBadRequest, "createdAtStartTs must be a unix millis timestamp")
		return
	}
	if q.EndTS, err = int64Param(params.Get("createdAtEndTs")); err != nil {
		writeError(w, r, http.StatusBadRequest, "createdAtEndTs must be a unix millis timestamp")
		return
	}
	if q.EntityID, err = uuidParam(params.Get("entityId")); err != nil {
		writeError(w, r, http.StatusBadRequest, "entityId must be a valid UUID")
		return
	}
	if q.UserID, err = uuidParam(params.Get("userId")); err != nil {
		writeError(w, r, http.StatusBadRequest, "userId must be a valid UUID")
		return
	}

	q.EntityType = auditlog.EntityType(strings.ToUpper(strings.TrimSpace(params.Get("entityType"))))
	q.ActionType = auditlog.ActionType(strings.ToUpper(strings.TrimSpace(params.Get("actionType"))))
	q.ActionStatus = auditlog.ActionStatus(strings.ToUpper(strings.TrimSpace(params.Get("actionStatus"))))
	q.SearchText = params.Get("searchText")
	q.MatchCase = strings.EqualFold(params.Get("isSearchMatchCase"), "true")
	q.SortProperty = params.Get("sortProperty")
	if strings.EqualFold(params.Get("sortOrder"), "asc") {
		q.SortOrder = auditlog.SortAsc
	} else {
		q.SortOrder = auditlog.SortDesc
	}

	page, err := a.audit.Query(r.Context(), q)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if page.Entries == nil {
		page.Entries = []auditlog.Entry{}
	}
	writeJSON(w, http.StatusOK, page)
}

func intParam(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func int64Param(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func uuidParam(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}
