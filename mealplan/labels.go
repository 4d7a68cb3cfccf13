package mealplan

// MealPlanType 饮食计划类型，对应分类模型输出的前 5 列
type MealPlanType int

const (
	MealPlanUnmatched MealPlanType = iota
	MealPlanCalorieDeficitHighProtein
	MealPlanHighCalorieProteinRich
	MealPlanLowGIHighFiber
	MealPlanLowGILowSodium
	MealPlanLowSodiumHighPotassium
)

// MealPlanTypes 模型输出列顺序
var MealPlanTypes = []MealPlanType{
	MealPlanCalorieDeficitHighProtein,
	MealPlanHighCalorieProteinRich,
	MealPlanLowGIHighFiber,
	MealPlanLowGILowSodium,
	MealPlanLowSodiumHighPotassium,
}

// String 返回训练数据中的列名；未匹配时返回固定提示
func (t MealPlanType) String() string {
	switch t {
	case MealPlanCalorieDeficitHighProtein:
		return "meal_plan_type_Calorie-Deficit High-Protein"
	case MealPlanHighCalorieProteinRich:
		return "meal_plan_type_High-Calorie Protein-Rich"
	case MealPlanLowGIHighFiber:
		return "meal_plan_type_Low-GI High-Fiber Plan"
	case MealPlanLowGILowSodium:
		return "meal_plan_type_Low-GI Low-Sodium Plan"
	case MealPlanLowSodiumHighPotassium:
		return "meal_plan_type_Low-Sodium High-Potassium Plan"
	default:
		return "No specific meal plan matched"
	}
}

// Explanation 计划说明
func (t MealPlanType) Explanation() string {
	switch t {
	case MealPlanCalorieDeficitHighProtein:
		return "Focuses on reducing calories while maintaining high protein to preserve muscle mass. " +
			"Includes lean meats, eggs, legumes, and low-fat dairy. " +
			"Ideal for individuals aiming to lose fat while retaining muscle."
	case MealPlanHighCalorieProteinRich:
		return "High-calorie meals rich in protein for weight gain or muscle building. " +
			"Includes nuts, dairy, lean meats, eggs, and complex carbs. " +
			"Perfect for those who want to increase muscle mass or overall body weight."
	case MealPlanLowGIHighFiber:
		return "Low Glycemic Index and high fiber to control blood sugar levels. " +
			"Includes whole grains, vegetables, and legumes. " +
			"Suitable for people with diabetes or those seeking slow-releasing energy."
	case MealPlanLowGILowSodium:
		return "Diabetic-friendly with controlled sugar and low sodium to support blood pressure management. " +
			"Includes fresh vegetables, whole grains, lean protein, minimal processed foods. " +
			"Helps maintain stable blood sugar and supports heart health."
	case MealPlanLowSodiumHighPotassium:
		return "Reduces sodium and increases potassium for blood pressure regulation. " +
			"Includes fruits, vegetables, legumes, and low-sodium protein. " +
			"Best for individuals concerned about hypertension."
	default:
		return "We could not match a specialized meal plan. " +
			"We recommend a balanced diet with appropriate portions of carbohydrates, proteins, and fats based on your nutrition needs."
	}
}

// HealthTag 健康标签，对应分类模型输出的后 3 列
type HealthTag int

const (
	HealthTagGeneralRecommendation HealthTag = iota
	HealthTagDiabeticBPSafe
	HealthTagDiabeticSafe
	HealthTagGeneralPlan
)

// HealthTags 模型输出列顺序
var HealthTags = []HealthTag{
	HealthTagDiabeticBPSafe,
	HealthTagDiabeticSafe,
	HealthTagGeneralPlan,
}

func (t HealthTag) String() string {
	switch t {
	case HealthTagDiabeticBPSafe:
		return "health_tag_Diabetic & BP-Safe Plan"
	case HealthTagDiabeticSafe:
		return "health_tag_Diabetic-Safe Plan"
	case HealthTagGeneralPlan:
		return "health_tag_General Plan"
	default:
		return "General Recommendation"
	}
}

// Explanation 标签说明
func (t HealthTag) Explanation() string {
	switch t {
	case HealthTagDiabeticBPSafe:
		return "Safe for diabetics and individuals with hypertension. " +
			"Focus on low sugar, high fiber, low sodium, and heart-healthy nutrients. " +
			"Designed to maintain stable blood sugar and optimal blood pressure."
	case HealthTagDiabeticSafe:
		return "Safe for diabetics. Emphasizes controlled sugar intake and low-GI foods. " +
			"Helps maintain consistent energy levels and avoid sugar spikes."
	case HealthTagGeneralPlan:
		return "Balanced plan for healthy individuals without specific medical conditions. " +
			"Includes a mix of carbohydrates, protein, fats, vitamins, and minerals to support overall wellness. " +
			"Suitable for maintaining energy, supporting immunity, and promoting a healthy lifestyle."
	default:
		return "A general health plan is recommended. " +
			"Focus on balanced nutrition, regular physical activity, adequate sleep, and stress management."
	}
}

// Labels 解码后的分类结果
type Labels struct {
	MealPlan  MealPlanType
	HealthTag HealthTag
}

// DecodeLabels 解码多标签输出：前 len(MealPlanTypes) 位为计划类型，之后 len(HealthTags) 位为健康标签。
// 每段取第一个为 1 的位，越界视为 0，没有命中时返回未匹配值。
func DecodeLabels(vec []int) Labels {
	var out Labels
	for i, t := range MealPlanTypes {
		if i < len(vec) && vec[i] == 1 {
			out.MealPlan = t
			break
		}
	}
	offset := len(MealPlanTypes)
	for i, t := range HealthTags {
		if idx := offset + i; idx < len(vec) && vec[idx] == 1 {
			out.HealthTag = t
			break
		}
	}
	return out
}

// Width 分类模型输出的总列数
func Width() int {
	return len(MealPlanTypes) + len(HealthTags)
}
