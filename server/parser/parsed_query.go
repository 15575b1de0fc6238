package parser

import (
	"github.com/xraengine/xra-server/server/common"
)

// ParsedQuery is the flat record a successfully parsed command line
// produces. Only the fields of the dispatched QueryType are
// meaningful; everything else keeps its zero value.
type ParsedQuery struct {
	QueryType common.QueryType

	ClearName string

	CrossResultName string
	CrossFirstName  string
	CrossSecondName string

	DistinctResultName string
	DistinctName       string

	ExportName string

	GroupResultName   string
	GroupName         string
	GroupColumnName   string
	GroupHavingAgg    common.Aggregate
	GroupHavingColumn string
	GroupHavingOp     common.BinaryOperator
	GroupHavingValue  int64
	GroupReturnAgg    common.Aggregate
	GroupReturnColumn string

	IndexTableName  string
	IndexColumnName string

	JoinResultName       string
	JoinFirstName        string
	JoinSecondName       string
	JoinFirstColumnName  string
	JoinSecondColumnName string
	JoinOp               common.BinaryOperator

	LoadName string

	OrderResultName string
	OrderName       string
	OrderColumnName string
	OrderDirection  common.SortOrder

	PrintName string

	ProjectionResultName string
	ProjectionName       string
	ProjectionColumns    []string

	RenameName     string
	RenameFromName string
	RenameToName   string

	SelectionResultName   string
	SelectionName         string
	SelectionFirstColumn  string
	SelectionOp           common.BinaryOperator
	SelectionSecondColumn string
	SelectionIntLiteral   int64
	SelectionByColumn     bool

	SortName       string
	SortColumns    []string
	SortDirections []common.SortOrder

	SourceName string

	ComputeName   string
	TransposeName string
	SymmetryName  string
}
