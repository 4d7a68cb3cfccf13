package core

// Record 是一次预测的有序特征记录。
//
// 列集合与顺序在构造时固定（即模型训练时的特征顺序），每个请求新建一个，
// 不在请求之间共享。
type Record struct {
	columns []string
	index   map[string]int
	values  []float64
}

// NewRecord 按给定列顺序创建全零记录。重复列名只保留第一次出现的位置。
func NewRecord(columns []string) *Record {
	r := &Record{
		columns: make([]string, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if _, dup := r.index[c]; dup {
			continue
		}
		r.index[c] = len(r.columns)
		r.columns = append(r.columns, c)
	}
	r.values = make([]float64, len(r.columns))
	return r
}

// Set 写入列值；列不存在时返回 false，记录不变。
func (r *Record) Set(column string, value float64) bool {
	i, ok := r.index[column]
	if !ok {
		return false
	}
	r.values[i] = value
	return true
}

// Get 读取列值。
func (r *Record) Get(column string) (float64, bool) {
	i, ok := r.index[column]
	if !ok {
		return 0, false
	}
	return r.values[i], true
}

// Has 判断列是否属于记录。
func (r *Record) Has(column string) bool {
	_, ok := r.index[column]
	return ok
}

// Columns 返回列名副本。
func (r *Record) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Values 返回按列顺序排列的值副本，可直接作为模型输入行。
func (r *Record) Values() []float64 {
	out := make([]float64, len(r.values))
	copy(out, r.values)
	return out
}

// Map 返回 column -> value 的映射，便于日志与 CEL 求值。
func (r *Record) Map() map[string]float64 {
	out := make(map[string]float64, len(r.columns))
	for i, c := range r.columns {
		out[c] = r.values[i]
	}
	return out
}

// Len 返回列数。
func (r *Record) Len() int {
	return len(r.columns)
}
