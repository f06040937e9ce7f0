package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/evcraddock/churchdesk/internal/activity"
	"github.com/evcraddock/churchdesk/internal/db"
	"github.com/evcraddock/churchdesk/internal/duedate"
	"github.com/evcraddock/churchdesk/internal/equipment"
)

type equipmentListData struct {
	List       db.List[*equipment.Asset]
	Categories []*equipment.Category
	Statuses   []equipment.Status
	Due        []duedate.Status
}

type assetFormData struct {
	Asset      *equipment.Asset
	Categories []*equipment.Category
	Statuses   []equipment.Status
}

type equipmentDetailData struct {
	Asset       *equipment.Asset
	Maintenance []*equipment.Maintenance
	Activity    []activity.Entry
}

type maintenanceFormData struct {
	Asset    *equipment.Asset
	Event    *equipment.Maintenance
	Types    []equipment.MaintenanceType
	Statuses []equipment.MaintenanceStatus
}

type equipmentDetailJSON struct {
	*equipment.Asset
	Maintenance []*equipment.Maintenance `json:"maintenance"`
}

func equipmentFilter(r *http.Request) equipment.Filter {
	q := r.URL.Query()
	f := equipment.Filter{
		Search:     strings.TrimSpace(q.Get("q")),
		CategoryID: queryID(r, "category"),
		Due:        dueFrom(r),
	}
	if st := equipment.Status(q.Get("status")); st.IsValid() {
		f.Status = st
	}
	return f
}

func assetURL(id int64) string { return "/equipment/" + strconv.FormatInt(id, 10) }

// handleEquipmentList lists assets with search, category, status and due filters.
func (s *Server) handleEquipmentList(w http.ResponseWriter, r *http.Request) {
	list, err := s.equipment.ListAssets(r.Context(), equipmentFilter(r), pageFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		apiJSON(w, list, http.StatusOK)
		return
	}

	categories, err := s.equipment.ListCategories(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "equipment_list.html", view{
		Title: "Equipment",
		Data: equipmentListData{
			List:       list,
			Categories: categories,
			Statuses:   equipment.ValidStatuses,
			Due:        duedate.Statuses,
		},
	})
}

func (s *Server) renderAssetForm(w http.ResponseWriter, r *http.Request, a *equipment.Asset, in equipment.AssetInput, err error) {
	categories, listErr := s.equipment.ListCategories(r.Context())
	if listErr != nil {
		s.fail(w, r, listErr)
		return
	}
	title := "New equipment"
	if a != nil {
		title = "Edit " + a.Name
	}
	v := view{
		Title: title,
		Form:  in,
		Data:  assetFormData{Asset: a, Categories: categories, Statuses: equipment.ValidStatuses},
	}
	if err != nil {
		s.failForm(w, r, err, "equipment_form.html", v)
		return
	}
	s.render(w, r, http.StatusOK, "equipment_form.html", v)
}

func (s *Server) handleEquipmentNew(w http.ResponseWriter, r *http.Request) {
	in := equipment.AssetInput{
		Status:                  string(equipment.Good),
		MaintenanceIntervalDays: strconv.Itoa(equipment.DefaultIntervalDays),
		CategoryID:              r.URL.Query().Get("category"),
	}
	s.renderAssetForm(w, r, nil, in, nil)
}

func (s *Server) handleEquipmentCreate(w http.ResponseWriter, r *http.Request) {
	var in equipment.AssetInput
	if err := decodeForm(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.equipment.CreateAsset(r.Context(), in)
	if err != nil {
		s.renderAssetForm(w, r, nil, in, err)
		return
	}
	done(w, r, a, http.StatusCreated, assetURL(a.ID))
}

// handleEquipmentDetail shows an asset with its maintenance history and activity.
func (s *Server) handleEquipmentDetail(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.equipment.GetAsset(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	events, err := s.equipment.ListMaintenance(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		apiJSON(w, equipmentDetailJSON{Asset: a, Maintenance: events}, http.StatusOK)
		return
	}

	entries, err := activity.List(r.Context(), s.db, activity.Filter{EntityType: "equipment", EntityID: id, Limit: 20})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "equipment_detail.html", view{
		Title: a.Name,
		Data:  equipmentDetailData{Asset: a, Maintenance: events, Activity: entries},
	})
}

func (s *Server) handleEquipmentEdit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.equipment.GetAsset(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderAssetForm(w, r, a, equipment.AssetInputFrom(a), nil)
}

func (s *Server) handleEquipmentUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in equipment.AssetInput
	if err := decodeForm(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.equipment.UpdateAsset(r.Context(), id, in)
	if err != nil {
		current, getErr := s.equipment.GetAsset(r.Context(), id)
		if getErr != nil {
			s.fail(w, r, getErr)
			return
		}
		s.renderAssetForm(w, r, current, in, err)
		return
	}
	done(w, r, a, http.StatusOK, assetURL(a.ID))
}

func (s *Server) handleEquipmentDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.equipment.DeleteAsset(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	done(w, r, nil, http.StatusNoContent, "/equipment")
}

// Maintenance

func (s *Server) renderMaintenanceForm(w http.ResponseWriter, r *http.Request, a *equipment.Asset, m *equipment.Maintenance, in equipment.MaintenanceInput, err error) {
	title := "Record maintenance"
	if m != nil {
		title = "Edit maintenance"
	}
	v := view{
		Title: title,
		Form:  in,
		Data: maintenanceFormData{
			Asset:    a,
			Event:    m,
			Types:    equipment.ValidMaintenanceTypes,
			Statuses: equipment.ValidMaintenanceStatuses,
		},
	}
	if err != nil {
		s.failForm(w, r, err, "maintenance_form.html", v)
		return
	}
	s.render(w, r, http.StatusOK, "maintenance_form.html", v)
}

func (s *Server) handleMaintenanceNew(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.equipment.GetAsset(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	in := equipment.MaintenanceInput{
		MaintenanceDate: s.equipment.Today().String(),
		MaintenanceType: string(equipment.Preventive),
		Status:          string(equipment.Completed),
	}
	s.renderMaintenanceForm(w, r, a, nil, in, nil)
}

// handleMaintenanceCreate records a maintenance event against an asset.
func (s *Server) handleMaintenanceCreate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in equipment.MaintenanceInput
	if err := decodeForm(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.equipment.RecordMaintenance(r.Context(), id, in)
	if err != nil {
		a, getErr := s.equipment.GetAsset(r.Context(), id)
		if getErr != nil {
			s.fail(w, r, getErr)
			return
		}
		s.renderMaintenanceForm(w, r, a, nil, in, err)
		return
	}
	done(w, r, m, http.StatusCreated, assetURL(id))
}

func (s *Server) handleMaintenanceEdit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.equipment.GetMaintenance(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.equipment.GetAsset(r.Context(), m.EquipmentID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderMaintenanceForm(w, r, a, m, equipment.MaintenanceInputFrom(m), nil)
}

func (s *Server) handleMaintenanceUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	current, err := s.equipment.GetMaintenance(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in equipment.MaintenanceInput
	if err := decodeForm(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.equipment.UpdateMaintenance(r.Context(), id, in)
	if err != nil {
		a, getErr := s.equipment.GetAsset(r.Context(), current.EquipmentID)
		if getErr != nil {
			s.fail(w, r, getErr)
			return
		}
		s.renderMaintenanceForm(w, r, a, current, in, err)
		return
	}
	done(w, r, m, http.StatusOK, assetURL(m.EquipmentID))
}

func (s *Server) handleMaintenanceDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.equipment.GetMaintenance(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.equipment.DeleteMaintenance(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	done(w, r, nil, http.StatusNoContent, assetURL(m.EquipmentID))
}

// Categories

type categoriesData struct {
	Categories []*equipment.Category
}

func (s *Server) renderCategories(w http.ResponseWriter, r *http.Request, status int, in equipment.CategoryInput, err error) {
	categories, listErr := s.equipment.ListCategories(r.Context())
	if listErr != nil {
		s.fail(w, r, listErr)
		return
	}
	v := view{Title: "Categories", Form: in, Data: categoriesData{Categories: categories}}
	if err != nil {
		s.failForm(w, r, err, "categories.html", v)
		return
	}
	s.render(w, r, status, "categories.html", v)
}

// handleCategories lists categories with their equipment counts.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		categories, err := s.equipment.ListCategories(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		apiJSON(w, categories, http.StatusOK)
		return
	}
	s.renderCategories(w, r, http.StatusOK, equipment.CategoryInput{}, nil)
}

func (s *Server) handleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	var in equipment.CategoryInput
	if err := decodeForm(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.equipment.CreateCategory(r.Context(), in)
	if err != nil {
		s.renderCategories(w, r, http.StatusUnprocessableEntity, in, err)
		return
	}
	done(w, r, c, http.StatusCreated, "/categories")
}

func (s *Server) handleCategoryUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in equipment.CategoryInput
	if err := decodeForm(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.equipment.UpdateCategory(r.Context(), id, in)
	if err != nil {
		s.renderCategories(w, r, http.StatusUnprocessableEntity, in, err)
		return
	}
	done(w, r, c, http.StatusOK, "/categories")
}

// handleCategoryDelete refuses with 409 while equipment still uses the category.
func (s *Server) handleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.equipment.DeleteCategory(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	done(w, r, nil, http.StatusNoContent, "/categories")
}
