package schema

// Canonical entity type names.
const (
	TypePerson       = "person"
	TypeOrganization = "organization"
	TypeLocation     = "location"
	TypeEvent        = "event"
	TypeVehicle      = "vehicle"
	TypeDocument     = "document"
	TypeCustom       = "custom"

	// TypeUnknown is never canonical. It marks a type that must be detected.
	TypeUnknown = "unknown"
)

// Canonical link type names.
const (
	LinkAssociates   = "associates"
	LinkFamily       = "family"
	LinkOwns         = "owns"
	LinkTravels      = "travels"
	LinkCommunicates = "communicates"
)

var builtinEntityTypes = []EntityTypeDef{
	{
		Name:  TypePerson,
		Icon:  "user",
		Color: "#3498db",
		Aliases: []string{
			"people", "individual", "human", "suspect", "witness", "victim",
			"user", "employee", "contact", "officer", "agent", "subject", "member",
		},
		Profile: Profile{
			Keywords:   []string{"mr", "mrs", "ms", "dr", "miss", "sir", "jr", "sr"},
			Properties: []string{"first_name", "last_name", "firstname", "lastname", "surname", "gender", "dob", "birthdate", "age", "nationality", "occupation", "email", "phone"},
			Patterns: []FieldPattern{
				{Field: `^(e-?mail|email_address)$`, Value: `^[^@\s]+@[^@\s]+\.[^@\s]+$`},
				{Field: `(^|_)(birth|dob)`},
			},
		},
	},
	{
		Name:  TypeOrganization,
		Icon:  "building",
		Color: "#9b59b6",
		Aliases: []string{
			"organisation", "org", "company", "corporation", "corp", "business",
			"firm", "agency", "institution", "bank", "enterprise", "ngo",
			"government", "group",
		},
		Profile: Profile{
			Keywords:   []string{"inc", "corp", "corporation", "llc", "ltd", "gmbh", "company", "co", "group", "bank", "agency", "foundation", "association", "university", "plc", "holdings"},
			Properties: []string{"industry", "employees", "founded", "revenue", "website", "company_type", "registration_number", "ceo", "headquarters"},
			Patterns: []FieldPattern{
				{Field: `(website|url|domain)`, Value: `^(https?://|www\.)`},
				{Field: `(tax_id|vat|ein|registration)`},
			},
		},
	},
	{
		Name:  TypeLocation,
		Icon:  "map-pin",
		Color: "#27ae60",
		Aliases: []string{
			"place", "address", "city", "country", "site", "venue", "building",
			"region", "area", "geo", "position", "spot",
		},
		Profile: Profile{
			Keywords:   []string{"street", "avenue", "road", "city", "park", "airport", "station", "square", "plaza", "building", "hotel", "port", "harbor"},
			Properties: []string{"latitude", "longitude", "lat", "lng", "lon", "coordinates", "address", "city", "country", "zip", "postal_code", "state"},
			Patterns: []FieldPattern{
				{Field: `^(lat|latitude)$`, Value: `^-?\d{1,2}(\.\d+)?$`},
				{Field: `^(lng|lon|long|longitude)$`, Value: `^-?\d{1,3}(\.\d+)?$`},
			},
		},
	},
	{
		Name:  TypeEvent,
		Icon:  "calendar",
		Color: "#e67e22",
		Aliases: []string{
			"incident", "meeting", "transaction", "crime", "activity",
			"occurrence", "happening", "appointment",
		},
		Profile: Profile{
			Keywords:   []string{"meeting", "conference", "incident", "attack", "robbery", "call", "transaction", "transfer", "party", "summit", "event", "trial"},
			Properties: []string{"date", "time", "start_date", "end_date", "timestamp", "duration", "venue", "attendees", "occurred_at"},
			Patterns: []FieldPattern{
				{Field: `(date|time|when)`, Value: `\d{4}-\d{2}-\d{2}`},
			},
		},
	},
	{
		Name:    TypeVehicle,
		Icon:    "car",
		Color:   "#e74c3c",
		Aliases: []string{"car", "truck", "boat", "ship", "vessel", "aircraft", "plane", "motorcycle", "van"},
		Profile: Profile{
			Keywords:   []string{"car", "truck", "van", "boat", "ship", "plane", "aircraft", "motorcycle", "sedan", "suv", "toyota", "ford", "honda", "bmw"},
			Properties: []string{"make", "model", "vin", "license_plate", "plate", "registration", "color", "year_manufactured"},
			Patterns: []FieldPattern{
				{Field: `^vin$`, Value: `^[A-HJ-NPR-Z0-9]{17}$`},
				{Field: `(plate|tag)`},
			},
		},
	},
	{
		Name:    TypeDocument,
		Icon:    "file-text",
		Color:   "#7f8c8d",
		Aliases: []string{"file", "report", "record", "paper", "letter", "contract", "doc"},
		Profile: Profile{
			Keywords:   []string{"report", "contract", "letter", "memo", "invoice", "statement", "passport", "certificate", "document", "pdf"},
			Properties: []string{"author", "pages", "filename", "file_type", "mime_type", "content", "document_type", "page_count"},
			Patterns: []FieldPattern{
				{Field: `(file|path|filename)`, Value: `\.(pdf|docx?|txt|xlsx?|pptx?)$`},
			},
		},
	},
	{
		Name:  TypeCustom,
		Icon:  "circle",
		Color: "#95a5a6",
	},
}

// linkKeywordOrder is the order keyword tables are consulted in when a
// relationship name does not match a canonical link type.
var linkKeywordOrder = []string{LinkOwns, LinkCommunicates, LinkFamily, LinkTravels, LinkAssociates}

var builtinLinkTypes = []LinkType{
	{
		Name:     LinkAssociates,
		Label:    "Associates With",
		Color:    "#95a5a6",
		Keywords: []string{"associat", "knows", "friend", "colleague", "partner", "related", "linked", "connected", "works_with", "affiliat"},
	},
	{
		Name:     LinkFamily,
		Label:    "Family",
		Color:    "#e74c3c",
		Keywords: []string{"family", "relative", "parent", "child", "sibling", "spouse", "married", "husband", "wife", "mother", "father", "son", "daughter", "brother", "sister", "cousin"},
	},
	{
		Name:     LinkOwns,
		Label:    "Owns",
		Color:    "#f39c12",
		Keywords: []string{"own", "possess", "holds", "belongs", "controls", "employ"},
	},
	{
		Name:     LinkTravels,
		Label:    "Travels To",
		Color:    "#27ae60",
		Keywords: []string{"travel", "visit", "flew", "flight", "trip", "went", "lives", "located", "moved"},
	},
	{
		Name:     LinkCommunicates,
		Label:    "Communicates With",
		Color:    "#3498db",
		Keywords: []string{"communicat", "call", "email", "messag", "text", "contact", "phoned", "sms", "wrote", "conversation"},
	},
}

// Indicator fields add a fixed bonus to person and organization scores.
var (
	PersonIndicators       = []string{"first_name", "last_name", "gender", "dob", "birthdate", "age", "ssn", "email"}
	OrganizationIndicators = []string{"industry", "employees", "founded", "revenue", "website", "company_type", "registration_number"}
)

// Link inference hints.
var (
	FamilyHints        = []string{"family", "relative", "parent", "child", "sibling", "spouse", "husband", "wife", "mother", "father", "son", "daughter", "brother", "sister"}
	CommunicationHints = []string{"communication", "contacted", "call", "email", "message", "conversation"}
)
