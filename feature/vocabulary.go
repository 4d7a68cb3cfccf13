package feature

import "strings"

// Vocabulary 是某个类别字段在训练数据中出现过的取值（按训练时的出现顺序）。
// 构造后不可变，First() 即归一化失败时的兜底取值。
type Vocabulary struct {
	values []string
}

// NewVocabulary 创建词表，输入切片会被复制。
func NewVocabulary(values ...string) Vocabulary {
	out := make([]string, len(values))
	copy(out, values)
	return Vocabulary{values: out}
}

// Values 返回词表副本。
func (v Vocabulary) Values() []string {
	out := make([]string, len(v.values))
	copy(out, v.values)
	return out
}

// Len 返回词表长度。
func (v Vocabulary) Len() int {
	return len(v.values)
}

// Empty 判断词表是否为空。
func (v Vocabulary) Empty() bool {
	return len(v.values) == 0
}

// First 返回第一个取值；空词表返回 ("", false)。
func (v Vocabulary) First() (string, bool) {
	if len(v.values) == 0 {
		return "", false
	}
	return v.values[0], true
}

// Contains 精确判断取值是否在词表中。
func (v Vocabulary) Contains(value string) bool {
	for _, s := range v.values {
		if s == value {
			return true
		}
	}
	return false
}

// SynonymEntry 是一个标准取值及其变体。
// 变体比较时忽略大小写与首尾空白，数字和 bool 以 conv.Token 的形式参与比较。
type SynonymEntry struct {
	Canonical string   `json:"canonical" yaml:"canonical"`
	Variants  []string `json:"variants" yaml:"variants"`
}

// SynonymTable 是有序的同义词表，按声明顺序匹配。
type SynonymTable []SynonymEntry

// hasVariant 判断 token 是否是该条目的变体。
func (e SynonymEntry) hasVariant(token string) bool {
	key := foldKey(token)
	for _, v := range e.Variants {
		if foldKey(v) == key {
			return true
		}
	}
	return false
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// 内置同义词表，取值与训练数据使用的标准写法一致。

// BMILevelSynonyms BMI 等级同义词
func BMILevelSynonyms() SynonymTable {
	return SynonymTable{
		{Canonical: "Underweight", Variants: []string{"Underweight", "Under Weight", "Thin", "Low", "Below Normal", "Skinny"}},
		{Canonical: "Normal", Variants: []string{"Normal", "Normal Weight", "Healthy", "Average", "Good", "Ideal"}},
		{Canonical: "Overweight", Variants: []string{"Overweight", "Over Weight", "High", "Above Normal", "Heavy"}},
		{Canonical: "Obese", Variants: []string{"Obese", "Obesity", "Very High", "Extremely High", "Severely Overweight", "Very Heavy"}},
	}
}

// GoalSynonyms 健身目标同义词
func GoalSynonyms() SynonymTable {
	return SynonymTable{
		{Canonical: "Weight Loss", Variants: []string{"Weight Loss", "Lose Weight", "Fat Loss", "Cut", "Cutting", "Slim Down", "Reduce Weight"}},
		{Canonical: "Weight Gain", Variants: []string{"Weight Gain", "Gain Weight", "Bulk", "Bulking", "Mass Gain", "Increase Weight"}},
		{Canonical: "Muscle Gain", Variants: []string{"Muscle Gain", "Build Muscle", "Muscle Building", "Strength", "Hypertrophy", "Muscle Growth"}},
		{Canonical: "Maintain", Variants: []string{"Maintain", "Maintenance", "Stay Fit", "General Fitness", "Keep Fit", "Fitness"}},
		{Canonical: "Endurance", Variants: []string{"Endurance", "Cardio", "Stamina", "Aerobic", "Running", "Cycling"}},
		{Canonical: "Flexibility", Variants: []string{"Flexibility", "Stretching", "Yoga", "Mobility", "Range of Motion"}},
	}
}

// SexSynonyms 性别同义词
func SexSynonyms() SynonymTable {
	return SynonymTable{
		{Canonical: "Male", Variants: []string{"Male", "M", "Man", "male", "m"}},
		{Canonical: "Female", Variants: []string{"Female", "F", "Woman", "female", "f"}},
	}
}

// BinarySynonyms 是/否同义词，数字 1/0 与 bool 通过 token 形式匹配。
func BinarySynonyms() SynonymTable {
	return SynonymTable{
		{Canonical: "Yes", Variants: []string{"Yes", "Y", "yes", "y", "1", "true", "True"}},
		{Canonical: "No", Variants: []string{"No", "N", "no", "n", "0", "false", "False"}},
	}
}

// ActivitySynonyms 活动水平同义词（饮食计划）
func ActivitySynonyms() SynonymTable {
	return SynonymTable{
		{Canonical: "sedentary", Variants: []string{"sedentary", "inactive", "low", "desk job", "none"}},
		{Canonical: "moderate", Variants: []string{"moderate", "moderately active", "medium", "average"}},
		{Canonical: "active", Variants: []string{"active", "very active", "high", "athlete", "intense"}},
	}
}

// DietSynonyms 饮食类型同义词（饮食计划）
func DietSynonyms() SynonymTable {
	return SynonymTable{
		{Canonical: "non-veg", Variants: []string{"non-veg", "non veg", "nonveg", "non-vegetarian", "omnivore", "meat"}},
		{Canonical: "vegan", Variants: []string{"vegan", "plant-based", "plant based"}},
		{Canonical: "vegetarian", Variants: []string{"vegetarian", "veg", "veggie", "lacto-vegetarian"}},
		{Canonical: "eggetarian", Variants: []string{"eggetarian", "ovo-vegetarian"}},
	}
}

// MealGoalSynonyms 饮食计划使用的健身目标同义词（小写下划线写法）
func MealGoalSynonyms() SynonymTable {
	return SynonymTable{
		{Canonical: "weight_loss", Variants: []string{"weight_loss", "weight loss", "lose weight", "fat loss", "cut", "cutting"}},
		{Canonical: "weight_gain", Variants: []string{"weight_gain", "weight gain", "gain weight", "bulk", "bulking", "muscle gain"}},
		{Canonical: "maintenance", Variants: []string{"maintenance", "maintain", "stay fit", "general fitness"}},
	}
}

// CuisineSynonyms 菜系同义词（饮食计划）
func CuisineSynonyms() SynonymTable {
	return SynonymTable{
		{Canonical: "Continental", Variants: []string{"Continental", "European", "Western"}},
		{Canonical: "Indian", Variants: []string{"Indian", "Desi", "South Asian"}},
		{Canonical: "Mediterranean", Variants: []string{"Mediterranean", "Greek", "Middle Eastern"}},
		{Canonical: "Asian", Variants: []string{"Asian", "Chinese", "Japanese", "Thai"}},
	}
}

// GenderSynonyms 饮食计划使用的性别同义词（小写写法）
func GenderSynonyms() SynonymTable {
	return SynonymTable{
		{Canonical: "male", Variants: []string{"male", "m", "man"}},
		{Canonical: "female", Variants: []string{"female", "f", "woman"}},
	}
}
