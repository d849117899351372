package pattern

// DefaultPatterns returns the built-in subcategory patterns.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:        "Groceries",
			Subcategory: "groceries",
			Regex:       `\b(GROCER\w*|SUPERMARKET|MARKET|WHOLE\s*FOODS|TRADER\s*JOE'?S|SAFEWAY|KROGER|ALDI|LIDL)\b`,
			Priority:    90,
		},
		{
			Name:        "Restaurants",
			Subcategory: "restaurants",
			Regex:       `\b(RESTAURANT|CAFE|COFFEE|STARBUCKS|PIZZA|SUSHI|BURGER|DINER|BISTRO|BAR|GRILL|DOORDASH|UBER\s*EATS|GRUBHUB)\b`,
			Priority:    80,
		},
		{
			Name:        "Transport",
			Subcategory: "transport",
			Regex:       `\b(METRO|SUBWAY|TRANSIT|BUS|TRAIN|TAXI|UBER|LYFT|PARKING|TOLL|FUEL|GAS\s*STATION|SHELL|CHEVRON|EXXON)\b`,
			Priority:    70,
		},
		{
			Name:        "Utilities",
			Subcategory: "utilities",
			Regex:       `\b(ELECTRIC\w*|POWER|WATER|UTILIT\w*|INTERNET|COMCAST|VERIZON|AT&T|T-MOBILE|PHONE)\b`,
			Priority:    70,
		},
		{
			Name:        "Health",
			Subcategory: "health",
			Regex:       `\b(PHARMACY|CVS|WALGREENS|DOCTOR|DENTAL|DENTIST|CLINIC|HOSPITAL|MEDICAL)\b`,
			Priority:    65,
		},
		{
			Name:        "Clothing",
			Subcategory: "clothing",
			Regex:       `\b(CLOTHING|APPAREL|SHOES?|ZARA|H&M|UNIQLO|NIKE|ADIDAS)\b`,
			Priority:    60,
		},
		{
			Name:        "Entertainment",
			Subcategory: "entertainment",
			Regex:       `\b(NETFLIX|SPOTIFY|HULU|DISNEY|CINEMA|THEATER|THEATRE|CONCERT|STEAM|PLAYSTATION)\b`,
			Priority:    60,
		},
		{
			Name:        "Online Shopping",
			Subcategory: "shopping",
			Regex:       `\b(AMAZON|AMZN|EBAY|ETSY|TARGET|WALMART|COSTCO)\b`,
			Priority:    50,
		},
	}
}
