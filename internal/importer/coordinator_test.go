package importer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/example/store-catalog/internal/domain/category"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseCSV(t *testing.T, csv string) []Row {
	t.Helper()
	rows, err := New().Parse(NewCSVReader(strings.NewReader(csv)))
	require.NoError(t, err)
	return rows
}

func flattenPaths(t *testing.T, tree *category.Tree) []string {
	t.Helper()
	var out []string
	for n := range tree.Flatten() {
		path, err := tree.Path(n.ID)
		require.NoError(t, err)
		names := make([]string, len(path))
		for i, p := range path {
			names[i] = p.Name
		}
		out = append(out, strings.Join(names, " > "))
	}
	return out
}

// ============================================
// Parse Tests
// ============================================

func TestParse_NameParentColumns(t *testing.T) {
	rows := parseCSV(t, "name,parent,description\nPhones,Electronics,Handsets\n")
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, "Phones", rows[0].Name)
	assert.Equal(t, []string{"Electronics"}, rows[0].ParentPath)
	assert.Equal(t, "Handsets", rows[0].Description)
}

func TestParse_PathColumn(t *testing.T) {
	rows := parseCSV(t, "path\nElectronics > Phones > Smartphones\n")
	require.Len(t, rows, 1)
	assert.Equal(t, "Smartphones", rows[0].Name)
	assert.Equal(t, []string{"Electronics", "Phones"}, rows[0].ParentPath)
}

func TestParse_HeaderWithoutNameOrPath(t *testing.T) {
	_, err := New().Parse(NewCSVReader(strings.NewReader("foo,bar\n1,2\n")))
	assert.Error(t, err)
}

// ============================================
// Attribute Codec Tests
// ============================================

func TestAttributeCodec_ParseAndFormat(t *testing.T) {
	specs, err := ParseAttributeList("Size:dropdown:required=s|m|l; Material:text")
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "Size", specs[0].Name)
	assert.Equal(t, category.TypeDropdown, specs[0].Type)
	assert.True(t, specs[0].Required)
	require.Len(t, specs[0].Options, 3)
	assert.Equal(t, "m", specs[0].Options[1].Value)
	assert.Equal(t, category.TypeText, specs[1].Type)
	assert.False(t, specs[1].Required)

	_, err = ParseAttributeList("NoType")
	assert.Error(t, err)
	_, err = ParseAttributeList("Weird:telepathy")
	assert.Error(t, err)
}

// ============================================
// Validate Tests
// ============================================

func TestValidate_ReportsMissingParentAndBadAttributes(t *testing.T) {
	tree := category.NewTree("tenant-1", category.Limits{})
	rows := parseCSV(t, strings.Join([]string{
		"name,parent,attributes",
		"Phones,Electronics,",        // parent missing
		",,",                         // name missing
		"Shirts,,Color:dropdown",     // option-bearing type without options
		"Books,,",                    // fine
	}, "\n"))

	vr := New().Validate(tree, rows, Options{})
	assert.False(t, vr.OK())
	require.Len(t, vr.Errors, 3)
	assert.Equal(t, 1, vr.Errors[0].Row)
	assert.Equal(t, 2, vr.Errors[1].Row)
	assert.Equal(t, 3, vr.Errors[2].Row)
}

func TestValidate_PendingParentFromEarlierRow(t *testing.T) {
	tree := category.NewTree("tenant-1", category.Limits{})
	rows := parseCSV(t, "path\nA\nA > B\n")

	vr := New().Validate(tree, rows, Options{})
	assert.True(t, vr.OK(), "row 1 creates the parent row 2 needs")
}

func TestValidate_CreateMissingTurnsErrorIntoWarning(t *testing.T) {
	tree := category.NewTree("tenant-1", category.Limits{})
	rows := parseCSV(t, "name,parent\nPhones,Electronics\n")

	strict := New().Validate(tree, rows, Options{})
	assert.False(t, strict.OK())

	lenient := New().Validate(tree, rows, Options{CreateMissingCategories: true})
	assert.True(t, lenient.OK())
	assert.NotEmpty(t, lenient.Warnings)
}

func TestValidate_NeverMutates(t *testing.T) {
	tree := category.NewTree("tenant-1", category.Limits{})
	rows := parseCSV(t, "path\nA\nA > B\n")
	New().Validate(tree, rows, Options{CreateMissingCategories: true})
	assert.Equal(t, 0, tree.Len())
}

// ============================================
// Apply Tests
// ============================================

func TestApply_CreatesParentThenChild(t *testing.T) {
	tree := category.NewTree("tenant-1", category.Limits{})
	rows := parseCSV(t, "path\nA\nA > B\n")

	result, err := New().Apply(context.Background(), tree, rows, Options{CreateMissingCategories: true})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, 2, result.CreatedCategories)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{"A", "A > B"}, flattenPaths(t, tree))
}

func TestApply_CreatesMissingAncestorsOnTheFly(t *testing.T) {
	tree := category.NewTree("tenant-1", category.Limits{})
	rows := parseCSV(t, "path\nElectronics > Phones > Smartphones\n")

	result, err := New().Apply(context.Background(), tree, rows, Options{CreateMissingCategories: true})
	require.NoError(t, err)
	assert.Equal(t, 3, result.CreatedCategories)
	node, ok := tree.FindByNamePath([]string{"Electronics", "Phones", "Smartphones"})
	require.True(t, ok)
	assert.Equal(t, 2, node.Level)
}

func TestApply_SkipErrorsRecordsBadRowAndAppliesRest(t *testing.T) {
	tree := category.NewTree("tenant-1", category.Limits{})
	rows := parseCSV(t, strings.Join([]string{
		"name,attributes",
		"Good One,",
		"Bad,Color:dropdown", // dropdown without options
		"Good Two,Material:text",
	}, "\n"))

	result, err := New().Apply(context.Background(), tree, rows, Options{SkipErrors: true})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, 2, result.CreatedCategories)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Equal(t, 2, tree.Len())
}

func TestApply_AllOrNothingRollsBack(t *testing.T) {
	tree := category.NewTree("tenant-1", category.Limits{})
	_, err := tree.CreateCategory("", category.CreateSpec{Name: "Existing"})
	require.NoError(t, err)

	rows := parseCSV(t, strings.Join([]string{
		"name,parent",
		"New One,",
		"Existing,", // duplicate, aborts the run
	}, "\n"))

	result, err := New().Apply(context.Background(), tree, rows, Options{})
	assert.ErrorIs(t, err, ErrRunFailed)
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, 0, result.CreatedCategories)
	assert.Equal(t, []string{"Existing"}, flattenPaths(t, tree), "rollback restores the pre-run tree")
}

func TestApply_UpdateExisting(t *testing.T) {
	tree := category.NewTree("tenant-1", category.Limits{})
	_, err := tree.CreateCategory("", category.CreateSpec{Name: "Shoes", Description: "old"})
	require.NoError(t, err)

	rows := parseCSV(t, "name,description,attributes\nShoes,new text,Brand:text\n")
	result, err := New().Apply(context.Background(), tree, rows, Options{UpdateExisting: true})
	require.NoError(t, err)
	assert.Equal(t, 0, result.CreatedCategories)
	assert.Equal(t, 1, result.UpdatedCategories)

	node, ok := tree.FindByNamePath([]string{"Shoes"})
	require.True(t, ok)
	assert.Equal(t, "new text", node.Description)
	require.Len(t, node.Attributes, 1)
	assert.Equal(t, "Brand", node.Attributes[0].Name)
}

func TestApply_CancelledBetweenRows(t *testing.T) {
	tree := category.NewTree("tenant-1", category.Limits{})
	rows := parseCSV(t, "path\nA\nB\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// All-or-nothing: cancellation takes the rollback path.
	result, err := New().Apply(ctx, tree, rows, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, 0, tree.Len())
}

// ============================================
// Export / Round-trip Tests
// ============================================

func TestExport_RoundTripIsomorphic(t *testing.T) {
	src := category.NewTree("tenant-1", category.Limits{})
	root, err := src.CreateCategory("", category.CreateSpec{
		Name:        "Electronics",
		Description: "Devices",
		Attributes: []category.AttributeSpec{
			{Name: "Brand", Type: category.TypeText, Required: true},
			{Name: "Color", Type: category.TypeRadio, Options: []category.AttributeOption{{Value: "black"}, {Value: "white"}}},
		},
	})
	require.NoError(t, err)
	phones, err := src.CreateCategory(root.ID, category.CreateSpec{Name: "Phones"})
	require.NoError(t, err)
	_, err = src.CreateCategory(phones.ID, category.CreateSpec{Name: "Smartphones"})
	require.NoError(t, err)
	inactive := false
	_, err = src.CreateCategory("", category.CreateSpec{Name: "Archive", IsActive: &inactive})
	require.NoError(t, err)

	var buf bytes.Buffer
	coord := New()
	require.NoError(t, coord.Export(src, NewCSVWriter(&buf)))

	dst := category.NewTree("tenant-2", category.Limits{})
	rows, err := coord.Parse(NewCSVReader(&buf))
	require.NoError(t, err)
	result, err := coord.Apply(context.Background(), dst, rows, Options{CreateMissingCategories: true})
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Equal(t, src.Len(), dst.Len())
	assert.Equal(t, flattenPaths(t, src), flattenPaths(t, dst))

	reRoot, ok := dst.FindByNamePath([]string{"Electronics"})
	require.True(t, ok)
	require.Len(t, reRoot.Attributes, 2)
	assert.Equal(t, "Brand", reRoot.Attributes[0].Name)
	assert.True(t, reRoot.Attributes[0].Required)
	require.Len(t, reRoot.Attributes[1].Options, 2)
	assert.Equal(t, "black", reRoot.Attributes[1].Options[0].Value)

	reArchive, ok := dst.FindByNamePath([]string{"Archive"})
	require.True(t, ok)
	assert.False(t, reArchive.IsActive)
}
