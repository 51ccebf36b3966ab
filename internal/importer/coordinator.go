package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/example/store-catalog/internal/domain/category"
)

// ErrRunFailed marks an aborted import run. The returned Result carries the
// per-row details.
var ErrRunFailed = errors.New("import run failed")

// RunState tracks an import run through its phases.
type RunState string

const (
	StateParsed     RunState = "parsed"
	StateValidating RunState = "validating"
	StateApplying   RunState = "applying"
	StateCompleted  RunState = "completed"
	StateFailed     RunState = "failed"
)

// Severity splits row issues into blocking errors and non-blocking warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// RowIssue is one problem tied to an input row. Row is the 1-based data row
// number (the header does not count).
type RowIssue struct {
	Row      int      `json:"row"`
	Column   string   `json:"column,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Options selects the failure-handling mode of a run. SkipErrors chooses
// best-effort (bad rows recorded, good rows applied) over all-or-nothing
// (any bad row aborts and rolls back the whole run).
type Options struct {
	CreateMissingCategories bool `json:"create_missing_categories"`
	UpdateExisting          bool `json:"update_existing"`
	SkipErrors              bool `json:"skip_errors"`
}

// Result reports one finished (or aborted) run.
type Result struct {
	State             RunState   `json:"state"`
	CreatedCategories int        `json:"created_categories"`
	UpdatedCategories int        `json:"updated_categories"`
	Errors            []RowIssue `json:"errors,omitempty"`
	Warnings          []RowIssue `json:"warnings,omitempty"`
}

// ValidationResult is the outcome of a dry validation pass.
type ValidationResult struct {
	Errors   []RowIssue `json:"errors,omitempty"`
	Warnings []RowIssue `json:"warnings,omitempty"`
}

// OK reports whether no blocking errors were found.
func (r *ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Row is one parsed data row. ParentPath holds root-first category names.
type Row struct {
	Line        int
	Name        string
	ParentPath  []string
	Description string
	ActiveRaw   string
	AttrsRaw    string
}

// pathKey normalizes a name path for resolution bookkeeping.
func pathKey(segments []string) string {
	keys := make([]string, len(segments))
	for i, s := range segments {
		keys[i] = category.Slugify(s)
	}
	return strings.Join(keys, "/")
}

// Coordinator converts a tabular category sheet into tree mutations and back.
// It is stateless; every run gets its own Result.
type Coordinator struct{}

// New returns a Coordinator.
func New() *Coordinator { return &Coordinator{} }

// Column layout. "path" carries the full name path of the category itself and
// replaces "name" + "parent"; sheets may use either convention.
const (
	colName        = "name"
	colParent      = "parent"
	colPath        = "path"
	colDescription = "description"
	colActive      = "active"
	colAttributes  = "attributes"
)

// Parse reads the sheet into rows. It fails only on structural problems
// (unreadable input, unusable header); per-row issues are left to Validate.
func (c *Coordinator) Parse(r RowReader) ([]Row, error) {
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	_, hasName := cols[colName]
	_, hasPath := cols[colPath]
	if !hasName && !hasPath {
		return nil, fmt.Errorf("header needs a %q or %q column", colName, colPath)
	}

	cell := func(record []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []Row
	for line := 1; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		row := Row{
			Line:        line,
			Name:        cell(record, colName),
			Description: cell(record, colDescription),
			ActiveRaw:   cell(record, colActive),
			AttrsRaw:    cell(record, colAttributes),
		}
		if p := cell(record, colPath); p != "" {
			segments := splitPath(p)
			row.Name = segments[len(segments)-1]
			row.ParentPath = segments[:len(segments)-1]
		} else if parent := cell(record, colParent); parent != "" {
			row.ParentPath = splitPath(parent)
		}
		rows = append(rows, row)
	}
}

// splitPath breaks "Electronics > Phones" into its name segments.
func splitPath(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, ">") {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// Validate checks rows against the tree without mutating it. A parent path
// counts as resolvable when it names existing categories, categories an
// earlier row will create, or, with CreateMissingCategories, ancestors the
// run may create on the fly.
func (c *Coordinator) Validate(tree *category.Tree, rows []Row, opts Options) *ValidationResult {
	result := &ValidationResult{}
	addErr := func(row int, col, format string, args ...any) {
		result.Errors = append(result.Errors, RowIssue{
			Row: row, Column: col, Message: fmt.Sprintf(format, args...), Severity: SeverityError,
		})
	}
	addWarn := func(row int, col, format string, args ...any) {
		result.Warnings = append(result.Warnings, RowIssue{
			Row: row, Column: col, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning,
		})
	}

	existing := make(map[string]struct{})
	for n := range tree.Flatten() {
		path, err := tree.Path(n.ID)
		if err != nil {
			continue
		}
		keys := make([]string, len(path))
		for i, p := range path {
			keys[i] = p.Slug
		}
		existing[strings.Join(keys, "/")] = struct{}{}
	}
	pending := make(map[string]struct{})
	resolvable := func(key string) bool {
		if key == "" {
			return true
		}
		if _, ok := existing[key]; ok {
			return true
		}
		_, ok := pending[key]
		return ok
	}

	for _, row := range rows {
		ok := true
		if row.Name == "" {
			addErr(row.Line, colName, "category name is required")
			ok = false
		} else if category.Slugify(row.Name) == "" {
			addErr(row.Line, colName, "name %q yields no usable slug", row.Name)
			ok = false
		}

		parentKey := pathKey(row.ParentPath)
		if !resolvable(parentKey) {
			if opts.CreateMissingCategories {
				addWarn(row.Line, colParent, "parent path %q will be created", strings.Join(row.ParentPath, " > "))
				for i := range row.ParentPath {
					pending[pathKey(row.ParentPath[:i+1])] = struct{}{}
				}
			} else {
				addErr(row.Line, colParent, "parent path %q not found", strings.Join(row.ParentPath, " > "))
				ok = false
			}
		}

		if specs, err := ParseAttributeList(row.AttrsRaw); err != nil {
			addErr(row.Line, colAttributes, "%v", err)
			ok = false
		} else {
			for _, spec := range specs {
				if spec.Type.RequiresOptions() && len(spec.Options) == 0 {
					addErr(row.Line, colAttributes, "attribute %q: type %q requires options", spec.Name, spec.Type)
					ok = false
				}
			}
		}

		if row.ActiveRaw != "" {
			if _, err := strconv.ParseBool(row.ActiveRaw); err != nil {
				addWarn(row.Line, colActive, "unreadable active flag %q, assuming true", row.ActiveRaw)
			}
		}

		if ok && row.Name != "" {
			rowKey := parentKey
			if rowKey != "" {
				rowKey += "/"
			}
			rowKey += category.Slugify(row.Name)
			if _, exists := existing[rowKey]; exists && !opts.UpdateExisting {
				addErr(row.Line, colName, "category %q already exists under this parent", row.Name)
			} else {
				pending[rowKey] = struct{}{}
			}
		}
	}
	return result
}

// Apply runs the import against the tree. Rows are processed in input order,
// so a parent created by an earlier row is visible to later children. In
// all-or-nothing mode (SkipErrors false) any failure, including cancellation,
// restores the tree to its pre-run state.
func (c *Coordinator) Apply(ctx context.Context, tree *category.Tree, rows []Row, opts Options) (*Result, error) {
	result := &Result{State: StateValidating}

	vr := c.Validate(tree, rows, opts)
	result.Warnings = vr.Warnings
	if !vr.OK() {
		if !opts.SkipErrors {
			result.State = StateFailed
			result.Errors = vr.Errors
			return result, ErrRunFailed
		}
		result.Errors = vr.Errors
	}
	badRows := make(map[int]struct{}, len(vr.Errors))
	for _, issue := range vr.Errors {
		badRows[issue.Row] = struct{}{}
	}

	var snapshot *category.Tree
	if !opts.SkipErrors {
		snapshot = tree.Clone()
	}
	fail := func(row int, col string, err error) (*Result, error) {
		issue := RowIssue{Row: row, Column: col, Message: err.Error(), Severity: SeverityError}
		if opts.SkipErrors {
			result.Errors = append(result.Errors, issue)
			return nil, nil // recorded; caller continues
		}
		tree.Restore(snapshot)
		result.State = StateFailed
		result.Errors = append(result.Errors, issue)
		result.CreatedCategories = 0
		result.UpdatedCategories = 0
		return result, ErrRunFailed
	}

	result.State = StateApplying
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			if snapshot != nil {
				tree.Restore(snapshot)
				result.CreatedCategories = 0
				result.UpdatedCategories = 0
				result.State = StateFailed
			}
			return result, err
		}
		if _, bad := badRows[row.Line]; bad {
			continue
		}

		parentID, err := c.resolveParent(tree, row.ParentPath, opts, result)
		if err != nil {
			if res, ferr := fail(row.Line, colParent, err); ferr != nil {
				return res, ferr
			}
			continue
		}

		if err := c.applyRow(tree, parentID, row, opts, result); err != nil {
			if res, ferr := fail(row.Line, colName, err); ferr != nil {
				return res, ferr
			}
		}
	}

	result.State = StateCompleted
	return result, nil
}

// resolveParent walks the parent path, creating missing ancestors when the
// run allows it. Implicitly created ancestors count as created categories.
func (c *Coordinator) resolveParent(tree *category.Tree, path []string, opts Options, result *Result) (string, error) {
	parentID := ""
	for _, name := range path {
		node, ok := tree.FindChildByName(parentID, name)
		if !ok {
			if !opts.CreateMissingCategories {
				return "", fmt.Errorf("parent path segment %q not found", name)
			}
			created, err := tree.CreateCategory(parentID, category.CreateSpec{Name: name})
			if err != nil {
				return "", fmt.Errorf("create missing parent %q: %w", name, err)
			}
			result.CreatedCategories++
			node = created
		}
		parentID = node.ID
	}
	return parentID, nil
}

func (c *Coordinator) applyRow(tree *category.Tree, parentID string, row Row, opts Options, result *Result) error {
	specs, err := ParseAttributeList(row.AttrsRaw)
	if err != nil {
		return err
	}
	var active *bool
	if row.ActiveRaw != "" {
		if v, err := strconv.ParseBool(row.ActiveRaw); err == nil {
			active = &v
		}
	}

	existing, ok := tree.FindChildByName(parentID, row.Name)
	if ok {
		if !opts.UpdateExisting {
			return fmt.Errorf("category %q already exists under this parent", row.Name)
		}
		update := category.UpdateSpec{IsActive: active}
		if row.Description != "" {
			update.Description = &row.Description
		}
		if _, err := tree.UpdateCategory(existing.ID, update); err != nil {
			return err
		}
		if len(specs) > 0 {
			if err := replaceAttributes(tree, existing, specs); err != nil {
				return err
			}
		}
		result.UpdatedCategories++
		return nil
	}

	_, err = tree.CreateCategory(parentID, category.CreateSpec{
		Name:        row.Name,
		Description: row.Description,
		IsActive:    active,
		Attributes:  specs,
	})
	if err != nil {
		return err
	}
	result.CreatedCategories++
	return nil
}

// replaceAttributes swaps a node's attribute list for the imported one.
func replaceAttributes(tree *category.Tree, node *category.Node, specs []category.AttributeSpec) error {
	ids := make([]string, len(node.Attributes))
	for i, attr := range node.Attributes {
		ids[i] = attr.ID
	}
	for _, id := range ids {
		if err := tree.RemoveAttribute(node.ID, id); err != nil {
			return err
		}
	}
	for _, spec := range specs {
		if _, err := tree.AddAttribute(node.ID, spec); err != nil {
			return err
		}
	}
	return nil
}

// Export writes the tree in the import schema, one row per category in
// depth-first order so parents always precede their children. Re-importing
// the output into an empty tree reproduces an isomorphic hierarchy.
func (c *Coordinator) Export(tree *category.Tree, w RowWriter) error {
	if err := w.Write([]string{colName, colParent, colDescription, colActive, colAttributes}); err != nil {
		return err
	}
	for n := range tree.Flatten() {
		parent := ""
		if n.ParentID != "" {
			path, err := tree.Path(n.ParentID)
			if err != nil {
				return err
			}
			names := make([]string, len(path))
			for i, p := range path {
				names[i] = p.Name
			}
			parent = strings.Join(names, " > ")
		}
		record := []string{
			n.Name,
			parent,
			n.Description,
			strconv.FormatBool(n.IsActive),
			FormatAttributeList(n.Attributes),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Flush()
}
