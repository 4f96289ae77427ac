package projection

// ColumnStyle is the presentation of one column.
type ColumnStyle struct {
	// MinWidth is in pixels, as measured in the web list view.
	MinWidth int
}

// defaultMinWidth applies to keys the layout does not name.
const defaultMinWidth = 90

// pixelsPerChar converts pixel widths to terminal and spreadsheet columns.
const pixelsPerChar = 10

// Layout holds per-field column styles. It is passed to renderers
// explicitly.
type Layout map[string]ColumnStyle

// DefaultLayout returns the column widths of the shift record list.
func DefaultLayout() Layout {
	return Layout{
		"serial_number":     {MinWidth: 80},
		"month":             {MinWidth: 30},
		"production_line":   {MinWidth: 40},
		"process":           {MinWidth: 30},
		"equipment_name":    {MinWidth: 180},
		"equipment_number":  {MinWidth: 100},
		"equipment_part":    {MinWidth: 180},
		"change_reason":     {MinWidth: 40},
		"before_change":     {MinWidth: 200},
		"after_change":      {MinWidth: 200},
		"start_date_time":   {MinWidth: 120},
		"end_date_time":     {MinWidth: 120},
		"duration":          {MinWidth: 40},
		"parts_consumables": {MinWidth: 180},
		"implementer":       {MinWidth: 80},
		"acceptor":          {MinWidth: 80},
		"remarks":           {MinWidth: 250},
	}
}

// MinWidth returns the pixel width of key.
func (l Layout) MinWidth(key string) int {
	if s, ok := l[key]; ok && s.MinWidth > 0 {
		return s.MinWidth
	}
	return defaultMinWidth
}

// CharWidth returns the width of key in character cells, never less than 4.
func (l Layout) CharWidth(key string) int {
	return max(4, l.MinWidth(key)/pixelsPerChar)
}
