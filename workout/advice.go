package workout

import (
	"strconv"
	"strings"
)

// Advice 基于目标与 BMI 的训练建议
type Advice struct {
	Exercises      string `json:"exercises"`
	Equipment      string `json:"equipment"`
	Diet           string `json:"diet"`
	Schedule       string `json:"schedule"`
	Recommendation string `json:"recommendation"`
}

const safetyNote = " Always warm up before exercising and cool down afterwards. Listen to your body and adjust intensity as needed."

// Advise 生成建议。goal 按关键字匹配，level 为 BMILevel 的结果。
func Advise(goal, level string, bmi float64) Advice {
	var a Advice
	g := strings.ToLower(goal)
	switch {
	case containsAny(g, "weight loss", "loss", "cut"):
		a.Exercises = "High-intensity cardio (30-45 min), Full-body strength training, HIIT workouts 3-4x/week, Walking 8000+ steps daily"
		a.Equipment = "Treadmill, Elliptical, Dumbbells, Kettlebells, Resistance bands, Jump rope"
		a.Diet = "Caloric deficit of 500-750 calories, High protein (1.2-1.6g/kg), Reduce processed foods, Increase vegetables and fiber"
		a.Schedule = "Mon/Wed/Fri: Strength training, Tue/Thu: Cardio, Weekend: Active recovery"
	case containsAny(g, "weight gain", "gain", "bulk"):
		a.Exercises = "Compound movements: Squats, Deadlifts, Bench press, Rows. 3-4 sets of 6-8 reps with progressive overload"
		a.Equipment = "Barbell, Dumbbells, Power rack, Bench press, Pull-up bar, Cable machine"
		a.Diet = "Caloric surplus of 300-500 calories, High protein (1.6-2.2g/kg), Complex carbs, Healthy fats, Frequent meals"
		a.Schedule = "4-5 days/week strength training, 2 days rest, Focus on major muscle groups"
	case containsAny(g, "muscle", "strength", "hypertrophy"):
		a.Exercises = "Hypertrophy training: 8-12 reps, 3-4 sets, Rest 60-90 seconds, Focus on time under tension"
		a.Equipment = "Free weights, Cable machines, Adjustable bench, Various grips and attachments"
		a.Diet = "High protein (1.8-2.5g/kg), Post-workout nutrition within 2 hours, Adequate carbs for recovery"
		a.Schedule = "Upper/Lower split or Push/Pull/Legs, 4-6 days/week, 48-72 hours rest per muscle group"
	case containsAny(g, "endurance", "cardio", "stamina"):
		a.Exercises = "Long steady-state cardio, Interval training, Circuit training, Sport-specific activities"
		a.Equipment = "Cardio machines, Running shoes, Heart rate monitor, Cycling equipment"
		a.Diet = "Adequate carbohydrates for energy, Proper hydration, Electrolyte balance"
		a.Schedule = "5-6 days cardio, 2-3 days strength training, Progressive distance/time increases"
	default:
		a.Exercises = "Balanced routine: 150 min moderate cardio/week + 2-3 strength sessions, Flexibility work"
		a.Equipment = "Basic gym equipment, Dumbbells, Resistance bands, Cardio machines"
		a.Diet = "Balanced macronutrients, Whole foods, Adequate hydration, Regular meal timing"
		a.Schedule = "3-4 days/week mixed training, 2-3 rest days, Include variety to prevent boredom"
	}

	b := formatBMI(bmi)
	switch level {
	case "Underweight":
		a.Recommendation = "With BMI " + b + ", focus on healthy weight gain through strength training and increased caloric intake. Consult a nutritionist for personalized meal planning."
	case "Overweight":
		a.Recommendation = "With BMI " + b + ", prioritize gradual weight loss (1-2 lbs/week) through moderate caloric deficit and regular exercise. Focus on sustainable lifestyle changes."
	case "Obese":
		a.Recommendation = "With BMI " + b + ", start with low-impact exercises and consult healthcare providers. Focus on sustainable lifestyle changes and consider professional guidance."
	default:
		a.Recommendation = "With BMI " + b + " in the normal range, focus on maintaining your current weight while working towards your fitness goals."
	}
	a.Recommendation += safetyNote
	return a
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// formatBMI 整数值保留一位小数（22 -> "22.0"）
func formatBMI(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
