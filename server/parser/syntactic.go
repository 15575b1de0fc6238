package parser

import (
	"strconv"
	"strings"

	"github.com/juju/errors"

	"github.com/xraengine/xra-server/server/common"
)

// Parse turns a command line into a ParsedQuery or a syntax error.
func Parse(line string) (*ParsedQuery, error) {
	tokens := Tokenize(line)
	if len(tokens) < 2 {
		return nil, syntaxErrorf("incomplete command")
	}

	switch tokens[0] {
	case "CLEAR":
		return parseClear(tokens)
	case "INDEX":
		return parseIndex(tokens)
	case "LIST":
		return parseList(tokens)
	case "LOAD":
		if tokens[1] == "MATRIX" {
			return parseLoadMatrix(tokens)
		}
		return parseLoad(tokens)
	case "PRINT":
		if tokens[1] == "MATRIX" {
			return parsePrintMatrix(tokens)
		}
		return parsePrint(tokens)
	case "RENAME":
		if tokens[1] == "MATRIX" {
			return parseRenameMatrix(tokens)
		}
		return parseRename(tokens)
	case "EXPORT":
		if tokens[1] == "MATRIX" {
			return parseExportMatrix(tokens)
		}
		return parseExport(tokens)
	case "SOURCE":
		return parseSource(tokens)
	case "TRANSPOSE":
		return parseTranspose(tokens)
	case "CHECKSYMMETRY":
		return parseCheckSymmetry(tokens)
	case "COMPUTE":
		return parseCompute(tokens)
	case "SORT":
		return parseSort(tokens)
	}

	// Everything else is an assignment: RESULT <- OPERATOR ...
	if len(tokens) < 3 || tokens[1] != "<-" {
		return nil, syntaxErrorf("unknown command %s", tokens[0])
	}
	switch tokens[2] {
	case "PROJECT":
		return parseProjection(tokens)
	case "SELECT":
		return parseSelection(tokens)
	case "JOIN":
		return parseJoin(tokens)
	case "CROSS":
		return parseCross(tokens)
	case "DISTINCT":
		return parseDistinct(tokens)
	case "ORDER":
		return parseOrder(tokens)
	case "GROUP":
		return parseGroup(tokens)
	default:
		return nil, syntaxErrorf("unknown operator %s", tokens[2])
	}
}

func syntaxErrorf(format string, args ...interface{}) error {
	return errors.Annotatef(common.ErrSyntax, format, args...)
}

func parseClear(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 2 {
		return nil, syntaxErrorf("usage: CLEAR <name>")
	}
	return &ParsedQuery{QueryType: common.Clear, ClearName: tokens[1]}, nil
}

func parseIndex(tokens []string) (*ParsedQuery, error) {
	// INDEX ON <column> FROM <table>; the operation itself is reserved.
	if len(tokens) < 5 || tokens[1] != "ON" || tokens[3] != "FROM" {
		return nil, syntaxErrorf("usage: INDEX ON <column> FROM <table>")
	}
	return &ParsedQuery{
		QueryType:       common.Index,
		IndexColumnName: tokens[2],
		IndexTableName:  tokens[4],
	}, nil
}

func parseList(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 2 {
		return nil, syntaxErrorf("usage: LIST TABLES|MATRICES")
	}
	switch tokens[1] {
	case "TABLES":
		return &ParsedQuery{QueryType: common.List}, nil
	case "MATRICES":
		return &ParsedQuery{QueryType: common.ListMatrices}, nil
	default:
		return nil, syntaxErrorf("usage: LIST TABLES|MATRICES")
	}
}

func parseLoad(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 2 {
		return nil, syntaxErrorf("usage: LOAD <table>")
	}
	return &ParsedQuery{QueryType: common.Load, LoadName: tokens[1]}, nil
}

func parseLoadMatrix(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 3 {
		return nil, syntaxErrorf("usage: LOAD MATRIX <matrix>")
	}
	return &ParsedQuery{QueryType: common.LoadMatrix, LoadName: tokens[2]}, nil
}

func parsePrint(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 2 {
		return nil, syntaxErrorf("usage: PRINT <table>")
	}
	return &ParsedQuery{QueryType: common.Print, PrintName: tokens[1]}, nil
}

func parsePrintMatrix(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 3 {
		return nil, syntaxErrorf("usage: PRINT MATRIX <matrix>")
	}
	return &ParsedQuery{QueryType: common.PrintMatrix, PrintName: tokens[2]}, nil
}

// parseRename accepts both "RENAME <from> <to> FROM <table>" and the
// longhand "RENAME <from> TO <to> FROM <table>".
func parseRename(tokens []string) (*ParsedQuery, error) {
	if len(tokens) == 6 && tokens[2] == "TO" && tokens[4] == "FROM" {
		return &ParsedQuery{
			QueryType:      common.Rename,
			RenameFromName: tokens[1],
			RenameToName:   tokens[3],
			RenameName:     tokens[5],
		}, nil
	}
	if len(tokens) == 5 && tokens[3] == "FROM" {
		return &ParsedQuery{
			QueryType:      common.Rename,
			RenameFromName: tokens[1],
			RenameToName:   tokens[2],
			RenameName:     tokens[4],
		}, nil
	}
	return nil, syntaxErrorf("usage: RENAME <from> <to> FROM <table>")
}

func parseRenameMatrix(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 4 {
		return nil, syntaxErrorf("usage: RENAME MATRIX <from> <to>")
	}
	return &ParsedQuery{
		QueryType:      common.RenameMatrix,
		RenameFromName: tokens[2],
		RenameToName:   tokens[3],
	}, nil
}

func parseExport(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 2 {
		return nil, syntaxErrorf("usage: EXPORT <table>")
	}
	return &ParsedQuery{QueryType: common.Export, ExportName: tokens[1]}, nil
}

func parseExportMatrix(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 3 {
		return nil, syntaxErrorf("usage: EXPORT MATRIX <matrix>")
	}
	return &ParsedQuery{QueryType: common.ExportMatrix, ExportName: tokens[2]}, nil
}

func parseSource(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 2 {
		return nil, syntaxErrorf("usage: SOURCE <script>")
	}
	return &ParsedQuery{QueryType: common.Source, SourceName: tokens[1]}, nil
}

func parseTranspose(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 3 || tokens[1] != "MATRIX" {
		return nil, syntaxErrorf("usage: TRANSPOSE MATRIX <matrix>")
	}
	return &ParsedQuery{QueryType: common.Transpose, TransposeName: tokens[2]}, nil
}

func parseCheckSymmetry(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 2 {
		return nil, syntaxErrorf("usage: CHECKSYMMETRY <matrix>")
	}
	return &ParsedQuery{QueryType: common.CheckSymmetry, SymmetryName: tokens[1]}, nil
}

func parseCompute(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 2 {
		return nil, syntaxErrorf("usage: COMPUTE <matrix>")
	}
	return &ParsedQuery{QueryType: common.Compute, ComputeName: tokens[1]}, nil
}

// parseSort reads "SORT <table> BY <col> <dir> [<col> <dir> ...]".
func parseSort(tokens []string) (*ParsedQuery, error) {
	if len(tokens) < 5 || tokens[2] != "BY" {
		return nil, syntaxErrorf("usage: SORT <table> BY <column> ASC|DESC, ...")
	}
	rest := tokens[3:]
	if len(rest)%2 != 0 {
		return nil, syntaxErrorf("sort keys must be <column> <direction> pairs")
	}
	pq := &ParsedQuery{QueryType: common.Sort, SortName: tokens[1]}
	for i := 0; i < len(rest); i += 2 {
		dir := common.ParseSortOrder(rest[i+1])
		if dir == common.NoSortOrder {
			return nil, syntaxErrorf("bad sort direction %s", rest[i+1])
		}
		pq.SortColumns = append(pq.SortColumns, rest[i])
		pq.SortDirections = append(pq.SortDirections, dir)
	}
	return pq, nil
}

// parseProjection reads "R <- PROJECT <col>... FROM <table>".
func parseProjection(tokens []string) (*ParsedQuery, error) {
	if len(tokens) < 6 || tokens[len(tokens)-2] != "FROM" {
		return nil, syntaxErrorf("usage: R <- PROJECT <columns> FROM <table>")
	}
	return &ParsedQuery{
		QueryType:            common.Projection,
		ProjectionResultName: tokens[0],
		ProjectionColumns:    tokens[3 : len(tokens)-2],
		ProjectionName:       tokens[len(tokens)-1],
	}, nil
}

// parseSelection reads "R <- SELECT <table> WHERE <col> <op> <value>",
// where value is an integer literal or a second column name.
func parseSelection(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 8 || tokens[4] != "WHERE" {
		return nil, syntaxErrorf("usage: R <- SELECT <table> WHERE <column> <op> <value>")
	}
	op := common.ParseBinaryOperator(tokens[6])
	if op == common.NoBinop {
		return nil, syntaxErrorf("bad operator %s", tokens[6])
	}
	pq := &ParsedQuery{
		QueryType:            common.Selection,
		SelectionResultName:  tokens[0],
		SelectionName:        tokens[3],
		SelectionFirstColumn: tokens[5],
		SelectionOp:          op,
	}
	if v, err := strconv.ParseInt(tokens[7], 10, 64); err == nil {
		pq.SelectionIntLiteral = v
	} else {
		pq.SelectionByColumn = true
		pq.SelectionSecondColumn = tokens[7]
	}
	return pq, nil
}

// parseJoin reads "R <- JOIN <t1> <t2> ON <t1.col> <op> <t2.col>"; the
// table qualifiers on the join columns are optional.
func parseJoin(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 9 || tokens[5] != "ON" {
		return nil, syntaxErrorf("usage: R <- JOIN <t1>, <t2> ON <t1.col> <op> <t2.col>")
	}
	op := common.ParseBinaryOperator(tokens[7])
	if op == common.NoBinop {
		return nil, syntaxErrorf("bad operator %s", tokens[7])
	}
	firstCol, err := stripQualifier(tokens[6], tokens[3])
	if err != nil {
		return nil, errors.Trace(err)
	}
	secondCol, err := stripQualifier(tokens[8], tokens[4])
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &ParsedQuery{
		QueryType:            common.Join,
		JoinResultName:       tokens[0],
		JoinFirstName:        tokens[3],
		JoinSecondName:       tokens[4],
		JoinFirstColumnName:  firstCol,
		JoinSecondColumnName: secondCol,
		JoinOp:               op,
	}, nil
}

// stripQualifier removes a "table." prefix from a column reference,
// checking it names the expected relation.
func stripQualifier(ref, table string) (string, error) {
	idx := strings.IndexByte(ref, '.')
	if idx < 0 {
		return ref, nil
	}
	if ref[:idx] != table {
		return "", syntaxErrorf("column %s does not belong to %s", ref, table)
	}
	return ref[idx+1:], nil
}

func parseCross(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 5 {
		return nil, syntaxErrorf("usage: R <- CROSS <t1>, <t2>")
	}
	return &ParsedQuery{
		QueryType:       common.Cross,
		CrossResultName: tokens[0],
		CrossFirstName:  tokens[3],
		CrossSecondName: tokens[4],
	}, nil
}

func parseDistinct(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 4 {
		return nil, syntaxErrorf("usage: R <- DISTINCT <table>")
	}
	return &ParsedQuery{
		QueryType:          common.Distinct,
		DistinctResultName: tokens[0],
		DistinctName:       tokens[3],
	}, nil
}

// parseOrder reads "R <- ORDER <table> BY <column> <direction>".
func parseOrder(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 7 || tokens[4] != "BY" {
		return nil, syntaxErrorf("usage: R <- ORDER <table> BY <column> ASC|DESC")
	}
	dir := common.ParseSortOrder(tokens[6])
	if dir == common.NoSortOrder {
		return nil, syntaxErrorf("bad sort direction %s", tokens[6])
	}
	return &ParsedQuery{
		QueryType:       common.Order,
		OrderResultName: tokens[0],
		OrderName:       tokens[3],
		OrderColumnName: tokens[5],
		OrderDirection:  dir,
	}, nil
}

// parseGroup reads
// "R <- GROUP <table> BY <col> HAVING <AGG(col)> <op> <value> RETURN <AGG(col)>".
func parseGroup(tokens []string) (*ParsedQuery, error) {
	if len(tokens) != 12 || tokens[4] != "BY" || tokens[6] != "HAVING" || tokens[10] != "RETURN" {
		return nil, syntaxErrorf(
			"usage: R <- GROUP <table> BY <column> HAVING <AGG(col)> <op> <value> RETURN <AGG(col)>")
	}
	havingAgg, havingCol, err := parseAggregateTerm(tokens[7])
	if err != nil {
		return nil, errors.Trace(err)
	}
	op := common.ParseBinaryOperator(tokens[8])
	if op == common.NoBinop {
		return nil, syntaxErrorf("bad operator %s", tokens[8])
	}
	value, err := strconv.ParseInt(tokens[9], 10, 64)
	if err != nil {
		return nil, syntaxErrorf("bad HAVING literal %s", tokens[9])
	}
	returnAgg, returnCol, err := parseAggregateTerm(tokens[11])
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &ParsedQuery{
		QueryType:         common.Group,
		GroupResultName:   tokens[0],
		GroupName:         tokens[3],
		GroupColumnName:   tokens[5],
		GroupHavingAgg:    havingAgg,
		GroupHavingColumn: havingCol,
		GroupHavingOp:     op,
		GroupHavingValue:  value,
		GroupReturnAgg:    returnAgg,
		GroupReturnColumn: returnCol,
	}, nil
}

// parseAggregateTerm splits "SUM(col)" into its aggregate and column.
func parseAggregateTerm(term string) (common.Aggregate, string, error) {
	open := strings.IndexByte(term, '(')
	if open < 0 || !strings.HasSuffix(term, ")") {
		return common.NoAggregate, "", syntaxErrorf("bad aggregate %s", term)
	}
	agg := common.ParseAggregate(term[:open])
	if agg == common.NoAggregate {
		return common.NoAggregate, "", syntaxErrorf("bad aggregate function %s", term[:open])
	}
	col := term[open+1 : len(term)-1]
	if col == "" {
		return common.NoAggregate, "", syntaxErrorf("bad aggregate %s", term)
	}
	return agg, col, nil
}
