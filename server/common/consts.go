package common

// QueryType tags a parsed command with the operator it dispatches to.
type QueryType int

const (
	Undetermined QueryType = iota
	Clear
	Cross
	CheckSymmetry
	Compute
	Distinct
	Export
	ExportMatrix
	Group
	Index
	Join
	List
	ListMatrices
	Load
	LoadMatrix
	Order
	Print
	PrintMatrix
	Projection
	Rename
	RenameMatrix
	Selection
	Sort
	Source
	Transpose
)

func (q QueryType) String() string {
	switch q {
	case Clear:
		return "CLEAR"
	case Cross:
		return "CROSS"
	case CheckSymmetry:
		return "CHECKSYMMETRY"
	case Compute:
		return "COMPUTE"
	case Distinct:
		return "DISTINCT"
	case Export:
		return "EXPORT"
	case ExportMatrix:
		return "EXPORT MATRIX"
	case Group:
		return "GROUP"
	case Index:
		return "INDEX"
	case Join:
		return "JOIN"
	case List:
		return "LIST TABLES"
	case ListMatrices:
		return "LIST MATRICES"
	case Load:
		return "LOAD"
	case LoadMatrix:
		return "LOAD MATRIX"
	case Order:
		return "ORDER"
	case Print:
		return "PRINT"
	case PrintMatrix:
		return "PRINT MATRIX"
	case Projection:
		return "PROJECT"
	case Rename:
		return "RENAME"
	case RenameMatrix:
		return "RENAME MATRIX"
	case Selection:
		return "SELECT"
	case Sort:
		return "SORT"
	case Source:
		return "SOURCE"
	case Transpose:
		return "TRANSPOSE MATRIX"
	default:
		return "UNDETERMINED"
	}
}

// BinaryOperator is a comparison in SELECT, JOIN and HAVING clauses.
type BinaryOperator int

const (
	NoBinop BinaryOperator = iota
	Equal
	NotEqual
	LessThan
	Leq
	GreaterThan
	Geq
)

// ParseBinaryOperator maps the token spelling to its operator.
func ParseBinaryOperator(tok string) BinaryOperator {
	switch tok {
	case "==", "=":
		return Equal
	case "!=":
		return NotEqual
	case "<":
		return LessThan
	case "<=":
		return Leq
	case ">":
		return GreaterThan
	case ">=":
		return Geq
	default:
		return NoBinop
	}
}

func (op BinaryOperator) String() string {
	switch op {
	case Equal:
		return "=="
	case NotEqual:
		return "!="
	case LessThan:
		return "<"
	case Leq:
		return "<="
	case GreaterThan:
		return ">"
	case Geq:
		return ">="
	default:
		return "?"
	}
}

// Eval applies the comparison to two integers.
func (op BinaryOperator) Eval(a, b int64) bool {
	switch op {
	case Equal:
		return a == b
	case NotEqual:
		return a != b
	case LessThan:
		return a < b
	case Leq:
		return a <= b
	case GreaterThan:
		return a > b
	case Geq:
		return a >= b
	default:
		return false
	}
}

// SortOrder is the per-key direction of a sort.
type SortOrder int

const (
	NoSortOrder SortOrder = iota
	Asc
	Desc
)

// ParseSortOrder maps the token spelling to its order.
func ParseSortOrder(tok string) SortOrder {
	switch tok {
	case "ASC":
		return Asc
	case "DESC":
		return Desc
	default:
		return NoSortOrder
	}
}

func (s SortOrder) String() string {
	switch s {
	case Asc:
		return "ASC"
	case Desc:
		return "DESC"
	default:
		return "?"
	}
}

// Aggregate names a grouped aggregation function.
type Aggregate int

const (
	NoAggregate Aggregate = iota
	AggMin
	AggMax
	AggSum
	AggAvg
	AggCount
)

// ParseAggregate maps the token spelling to its aggregate.
func ParseAggregate(tok string) Aggregate {
	switch tok {
	case "MIN":
		return AggMin
	case "MAX":
		return AggMax
	case "SUM":
		return AggSum
	case "AVG":
		return AggAvg
	case "COUNT":
		return AggCount
	default:
		return NoAggregate
	}
}

func (a Aggregate) String() string {
	switch a {
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggCount:
		return "COUNT"
	default:
		return "?"
	}
}
