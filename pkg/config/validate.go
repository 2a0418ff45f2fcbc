package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/newtron-network/conexus/pkg/backend"
	"github.com/newtron-network/conexus/pkg/model"
	"github.com/newtron-network/conexus/pkg/util"
)

// Rejection reasons. Each failing rule adds one message starting with its
// reason.
const (
	ReasonMalformedLine   = "malformed line"
	ReasonMalformedTenant = "malformed tenant id"
	ReasonTenantNotFound  = "tenant not found"
	ReasonInvalidVMCount  = "invalid vm count"
	ReasonInvalidVLAN     = "invalid vlan"
	ReasonTransitSubnet   = "transit subnet too small / unparseable"
	ReasonOverlaySubnet   = "invalid overlay subnet"
	ReasonDMZSubnet       = "invalid dmz subnet"
)

// VLAN ids usable as a provider segmentation id.
const (
	MinVLAN = 1
	MaxVLAN = 4094
)

// Validator turns raw lines into ConfigEntries. The tenant listing is
// fetched from the identity provider on first use and kept for the
// validator's lifetime.
type Validator struct {
	Identity backend.Identity
	Log      *logrus.Entry

	tenants map[string]model.Tenant
}

// NewValidator returns a validator checking tenants against identity.
func NewValidator(identity backend.Identity) *Validator {
	return &Validator{Identity: identity}
}

// Validate checks every rule for raw and returns the parsed entry.
//
// A line breaking one or more rules yields a *util.ValidationError listing
// all of them (errors.Is(err, util.ErrValidationFailed) holds). Any other
// error means the tenant listing itself could not be fetched.
func (v *Validator) Validate(ctx context.Context, raw RawEntry) (model.ConfigEntry, error) {
	entry := model.ConfigEntry{Line: raw.Line}

	if len(raw.Fields) != FieldCount {
		return entry, util.NewValidationError(
			fmt.Sprintf("%s: expected %d fields, got %d", ReasonMalformedLine, FieldCount, len(raw.Fields)))
	}

	entry.TenantID = normalizeTenantID(raw.Field(FieldTenantID))
	entry.TenantName = raw.Field(FieldTenantName)
	entry.ImageID = raw.Field(FieldImageID)
	entry.FlavorID = raw.Field(FieldFlavorID)
	entry.OverlaySubnet = raw.Field(FieldOverlaySubnet)
	entry.TransitVLANLabel = raw.Field(FieldTransitVLANLabel)
	entry.TransitSubnet = raw.Field(FieldTransitSubnet)
	entry.DMZSubnet = raw.Field(FieldDMZSubnet)

	vb := &util.ValidationBuilder{}

	if entry.TenantID == "" {
		vb.AddError(ReasonMalformedTenant)
	} else {
		known, err := v.tenantExists(ctx, entry.TenantID)
		if err != nil {
			return entry, err
		}
		vb.Add(known, fmt.Sprintf("%s: %s", ReasonTenantNotFound, entry.TenantID))
	}

	if n, err := strconv.Atoi(raw.Field(FieldVMCount)); err != nil || n < 0 {
		vb.AddErrorf("%s: %q", ReasonInvalidVMCount, raw.Field(FieldVMCount))
	} else {
		entry.VMCount = n
	}

	if vlan, err := strconv.Atoi(raw.Field(FieldTransitVLAN)); err != nil {
		vb.AddErrorf("%s: %q is not a number", ReasonInvalidVLAN, raw.Field(FieldTransitVLAN))
	} else if vlan < MinVLAN || vlan > MaxVLAN {
		vb.AddErrorf("%s: %d out of range %d-%d", ReasonInvalidVLAN, vlan, MinVLAN, MaxVLAN)
	} else {
		entry.TransitVLAN = vlan
	}

	if _, err := util.TransitHostAddress(entry.TransitSubnet); err != nil {
		vb.AddErrorf("%s: %v", ReasonTransitSubnet, err)
	}
	vb.Add(util.IsValidIPv4CIDR(entry.OverlaySubnet),
		fmt.Sprintf("%s: %q", ReasonOverlaySubnet, entry.OverlaySubnet))
	vb.Add(util.IsValidIPv4CIDR(entry.DMZSubnet),
		fmt.Sprintf("%s: %q", ReasonDMZSubnet, entry.DMZSubnet))

	if err := vb.Build(); err != nil {
		return entry, err
	}
	util.WithLine(util.EntryOr(v.Log, "validator"), raw.Line).
		WithField("tenant", entry.TenantID).Debugf("Parsed entry %+v", entry)
	return entry, nil
}

// Reasons returns the rejection messages carried by err, or nil when err
// is not a validation failure.
func Reasons(err error) []string {
	var ve *util.ValidationError
	if errors.As(err, &ve) {
		return ve.Errors
	}
	return nil
}

// normalizeTenantID trims the id and cuts it to the longest id the
// identity provider issues.
func normalizeTenantID(id string) string {
	id = strings.TrimSpace(id)
	if r := []rune(id); len(r) > model.MaxTenantIDLen {
		id = string(r[:model.MaxTenantIDLen])
	}
	return id
}

func (v *Validator) tenantExists(ctx context.Context, id string) (bool, error) {
	if v.tenants == nil {
		if v.Identity == nil {
			return false, fmt.Errorf("listing tenants: no identity backend: %w", util.ErrDependencyMissing)
		}
		list, err := v.Identity.ListTenants(ctx)
		if err != nil {
			return false, fmt.Errorf("listing tenants: %w", err)
		}
		v.tenants = make(map[string]model.Tenant, len(list))
		for _, t := range list {
			v.tenants[t.ID] = t
		}
		util.EntryOr(v.Log, "validator").Debugf("Identity provider knows %d tenants", len(list))
	}
	_, ok := v.tenants[id]
	return ok, nil
}
