package model

// Reference-data rows the pipeline reads.  They are maintained elsewhere;
// the import service only resolves codes against the active sets.

// Format is a presentation format a cinema can program (2D, 3D, IMAX...).
type Format struct {
	ID       uint64 // formats.id
	Code     string // formats.code
	Name     string // formats.name
	IsActive bool   // formats.is_active
}

// Technology is a projection/sound technology (ATMOS, 4DX...).
type Technology struct {
	ID       uint64 // technologies.id
	Code     string // technologies.code
	Name     string // technologies.name
	IsActive bool   // technologies.is_active
}

// Language is a spoken or subtitle language.
type Language struct {
	ID       uint64 // languages.id
	Code     string // languages.code (ISO 639-1)
	Name     string // languages.name
	IsActive bool   // languages.is_active
}

// LanguageAlias maps a free-text token found in sheets (VF, VO, "french")
// to a canonical language code.
type LanguageAlias struct {
	ID    uint64 // language_aliases.id
	Alias string // language_aliases.alias
	Code  string // language_aliases.code
}

// Cinema is the venue a sheet belongs to.  Imports are keyed by cinema and,
// for multi-sheet workbooks, by the owning cinema group.
type Cinema struct {
	ID            uint64 // cinemas.id
	CinemaGroupID uint64 // cinemas.cinema_group_id (0 when independent)
	Name          string // cinemas.name
}
