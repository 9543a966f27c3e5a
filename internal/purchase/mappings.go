package purchase

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"billing/internal/apperr"
	"billing/internal/state"
	"billing/internal/validate"
	"billing/pkg/models"
)

// AddSupplierMapping records how a supplier's SKU links to a catalogue SKU.
// Newest mappings come first. An existing mapping for the same supplier and
// supplier SKU is replaced.
func (w *Workflow) AddSupplierMapping(ctx context.Context, m models.SupplierMapping) (models.SupplierMapping, error) {
	const op = "AddSupplierMapping"

	if err := ctx.Err(); err != nil {
		return models.SupplierMapping{}, err
	}
	m.SupplierSKU = strings.TrimSpace(m.SupplierSKU)
	m.SupplierName = strings.TrimSpace(m.SupplierName)
	m.InternalSKU = strings.TrimSpace(m.InternalSKU)
	if err := validate.Struct(op, m); err != nil {
		return models.SupplierMapping{}, err
	}
	m.ID = uuid.NewString()

	err := w.store.Update(op, func(st *state.State) error {
		if m.InternalName == "" {
			if i := st.Product(m.InternalSKU); i >= 0 {
				m.InternalName = st.Products[i].Name
			}
		}
		kept := make([]models.SupplierMapping, 0, len(st.SupplierMappings)+1)
		kept = append(kept, m)
		for _, old := range st.SupplierMappings {
			if old.SupplierSKU == m.SupplierSKU && old.SupplierName == m.SupplierName {
				continue
			}
			kept = append(kept, old)
		}
		st.SupplierMappings = kept
		return nil
	})
	if err != nil {
		return models.SupplierMapping{}, err
	}

	w.log.Info().
		Str("supplier", m.SupplierName).
		Str("supplier_sku", m.SupplierSKU).
		Str("sku", m.InternalSKU).
		Msg("Supplier mapping saved")
	return m, nil
}

// RemoveSupplierMapping deletes the mapping with the given id.
func (w *Workflow) RemoveSupplierMapping(ctx context.Context, id string) error {
	const op = "RemoveSupplierMapping"

	if err := ctx.Err(); err != nil {
		return err
	}
	return w.store.Update(op, func(st *state.State) error {
		for i := range st.SupplierMappings {
			if st.SupplierMappings[i].ID == id {
				st.SupplierMappings = append(st.SupplierMappings[:i], st.SupplierMappings[i+1:]...)
				return nil
			}
		}
		return apperr.New(op, apperr.ErrMappingNotFound, "", id)
	})
}

// AddWattMapping tags a catalogue SKU with a wattage, replacing an earlier tag.
func (w *Workflow) AddWattMapping(ctx context.Context, m models.WattMapping) (models.WattMapping, error) {
	const op = "AddWattMapping"

	if err := ctx.Err(); err != nil {
		return models.WattMapping{}, err
	}
	m.InternalSKU = strings.TrimSpace(m.InternalSKU)
	m.Watts = strings.TrimSpace(m.Watts)
	if err := validate.Struct(op, m); err != nil {
		return models.WattMapping{}, err
	}
	m.ID = uuid.NewString()

	err := w.store.Update(op, func(st *state.State) error {
		kept := make([]models.WattMapping, 0, len(st.WattMappings)+1)
		kept = append(kept, m)
		for _, old := range st.WattMappings {
			if old.InternalSKU != m.InternalSKU {
				kept = append(kept, old)
			}
		}
		st.WattMappings = kept
		return nil
	})
	if err != nil {
		return models.WattMapping{}, err
	}
	return m, nil
}

// RemoveWattMapping deletes the wattage tag with the given id.
func (w *Workflow) RemoveWattMapping(ctx context.Context, id string) error {
	const op = "RemoveWattMapping"

	if err := ctx.Err(); err != nil {
		return err
	}
	return w.store.Update(op, func(st *state.State) error {
		for i := range st.WattMappings {
			if st.WattMappings[i].ID == id {
				st.WattMappings = append(st.WattMappings[:i], st.WattMappings[i+1:]...)
				return nil
			}
		}
		return apperr.New(op, apperr.ErrMappingNotFound, "", id)
	})
}

// SupplierMappings returns the supplier mappings, newest first.
func (w *Workflow) SupplierMappings() []models.SupplierMapping {
	return w.store.Snapshot().SupplierMappings
}

// WattMappings returns the wattage tags, newest first.
func (w *Workflow) WattMappings() []models.WattMapping {
	return w.store.Snapshot().WattMappings
}
