package service

import (
	"fmt"

	"github.com/foodrescue/foodrescue/internal/model"
)

func welcomeEmailTemplate(name, role, dashboardURL, appName string) (string, string) {
	if role == model.RoleRestaurant {
		subject := fmt.Sprintf("Welcome to %s - Start Donating Today!", appName)
		body := fmt.Sprintf(`Hi %s,

Thanks for joining %s as a restaurant partner. You can now:

- Post surplus food donations with pickup details
- Track your impact with real-time metrics
- Get notified instantly when shelters claim your food
- See how many meals you've helped provide

Ready to make your first donation? Open your dashboard: %s

Best,
The %s Team`, name, appName, dashboardURL, appName)
		return subject, body
	}

	subject := fmt.Sprintf("Welcome to %s - Start Claiming Food!", appName)
	body := fmt.Sprintf(`Hi %s,

Thanks for joining %s as a shelter partner. You can now:

- Browse available food donations from local restaurants
- Claim food instantly with one click
- See pickup locations and time windows
- Track how much food you've rescued

Ready to start claiming food? Open your dashboard: %s

Best,
The %s Team`, name, appName, dashboardURL, appName)

	return subject, body
}

func claimNotificationTemplate(restaurantName, shelterName, description, pickupWindow, dashboardURL, appName string) (string, string) {
	subject := "Your surplus food has been claimed!"
	body := fmt.Sprintf(`Great news, %s!

Your food donation has been claimed by %s.

Donation details:
- Food description: %s
- Pickup window: %s
- Claimed by: %s

Please have the food ready for pickup during the window above.

View your donations: %s

Best,
The %s Team`, restaurantName, shelterName, description, pickupWindow, shelterName, dashboardURL, appName)

	return subject, body
}

func dailyDigestTemplate(name string, stats *model.UserStats, dashboardURL, appName string) (string, string) {
	if stats.Role == model.RoleRestaurant {
		subject := fmt.Sprintf("Your Daily Impact Report - %s", appName)
		body := fmt.Sprintf(`Hi %s,

Your impact so far:
- Total food donated: %s kg
- Estimated meals provided: %d
- Active food posts: %d

Keep up the amazing work! Every donation helps reduce waste and feeds people in need.

Dashboard: %s

Best,
The %s Team`, name, formatKg(stats.TotalKg), stats.TotalMeals, stats.ActivePosts, dashboardURL, appName)
		return subject, body
	}

	subject := fmt.Sprintf("Your Daily Activity Report - %s", appName)
	body := fmt.Sprintf(`Hi %s,

Your impact so far:
- Total food claimed: %s kg
- Estimated meals secured: %d
- Items claimed today: %d

Thank you for helping rescue food and serving your community!

Dashboard: %s

Best,
The %s Team`, name, formatKg(stats.TotalKg), stats.TotalMeals, stats.ClaimedToday, dashboardURL, appName)

	return subject, body
}

func formatKg(kg float64) string {
	return fmt.Sprintf("%g", model.RoundKg(kg))
}
