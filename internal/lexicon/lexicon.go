// Package lexicon holds the curated reference tables every field matcher
// consults: known universities and institutions, denylists, URL and form
// patterns, and the grade keyword sets. The tables are consolidated into one
// authoritative version each, built once by Default and passed explicitly to
// the resolvers — there is no ambient global state.
//
// All lookup keys are stored folded (lowercase, accent-stripped); callers are
// expected to fold input with textmatch.Fold before matching.
package lexicon

import "regexp"

// Canonical sentinels and labels shared across resolvers.
const (
	Other           = "Otro"
	Unspecified     = "Sin especificar"
	BridgePrincipal = "Bridge Principal"

	GradeUniversity         = "Estudiante Universitario"
	GradeGraduatedDiver     = "Graduado Diversificado"
	GradeGraduatedUniv      = "Graduado Universitario"
	GradeDefaultDiversified = "5to. Diversificado"
)

// Program labels, in menu order.
const (
	ProgramBusinessAdmin  = "Administración de Empresas"
	ProgramAdminScience   = "Ciencia de la Administración"
	ProgramIntlMarketing  = "International Marketing and Business Analytics"
	ProgramCommunications = "Comunicación Estratégica"
	ProgramMasters        = "Maestrías"
)

// FormMapping maps a form-name fragment to a program by substring containment.
type FormMapping struct {
	Fragment string
	Program  string
}

// URLProgram holds the ordered substring patterns that assign a program to a
// landing-page URL. Order matters: the first program with a matching pattern
// wins.
type URLProgram struct {
	Program  string
	Patterns []string
}

// Lexicon is the immutable reference data for one run.
type Lexicon struct {
	// Institution matching.
	Universities         map[string]string
	KnownInstitutions    map[string]string
	SpecificInstitutions []SpecificInstitution
	NonUniversity        map[string]bool
	InvalidResponses     map[string]bool
	InvalidPhrases       []string
	AcademicTitles       []string
	NonInstitutions      []string
	AmbiguousAcronyms    map[string]bool
	AcronymWhitelist     map[string]bool

	// Form mapping.
	FormPrograms    []FormMapping
	FormPlaceholder string
	PartnerMarkers  []string

	// URL categorization.
	URLPrograms    []URLProgram
	URLAlwaysOther []string
	BridgeDomain   string
	BridgeRootRE   *regexp.Regexp

	// Grade classification.
	UniversityKeywords  []string
	GraduatedKeywords   []string
	DiversifiedKeywords []string
	BasicKeywords       []string
	NumberWords         map[string]int
	JunkTokens          []string
	GradeOptions        []string

	// Program menus and career completion.
	Programs    []string
	CareerSlugs map[string]string
}

// SpecificInstitution is an institution whose name textually overlaps a
// university's; the override must win over university matching.
type SpecificInstitution struct {
	Fragment  string
	Canonical string
}

// Default builds the authoritative lexicon. Later table revisions from the
// source data won over earlier, contradictory ones; this is the deduplicated
// result.
func Default() *Lexicon {
	return &Lexicon{
		Universities: map[string]string{
			"usac":                      "Universidad de San Carlos de Guatemala (USAC)",
			"san carlos":                "Universidad de San Carlos de Guatemala (USAC)",
			"universidad de san carlos": "Universidad de San Carlos de Guatemala (USAC)",
			"url":                       "Universidad Rafael Landívar",
			"landivar":                  "Universidad Rafael Landívar",
			"rafael landivar":           "Universidad Rafael Landívar",
			"umg":                       "Universidad Mariano Gálvez",
			"mariano galvez":            "Universidad Mariano Gálvez",
			"galileo":                   "Universidad Galileo",
			"ufm":                       "Universidad Francisco Marroquín",
			"francisco marroquin":       "Universidad Francisco Marroquín",
			"uvg":                       "Universidad del Valle de Guatemala",
			"valle":                     "Universidad del Valle de Guatemala",
			"universidad del valle":     "Universidad del Valle de Guatemala",
			"da vinci":                  "Universidad Da Vinci",
			"davinci":                   "Universidad Da Vinci",
			"mesoamericana":             "Universidad Mesoamericana",
			"umes":                      "Universidad Mesoamericana",
			"panamericana":              "Universidad Panamericana",
			"upana":                     "Universidad Panamericana",
			"rural":                     "Universidad Rural",
			"del istmo":                 "Universidad del Istmo",
			"istmo":                     "Universidad del Istmo",
		},
		KnownInstitutions: map[string]string{
			"liceo javier":                     "Liceo Javier",
			"liceo guatemala":                  "Liceo Guatemala",
			"colegio monte maria":              "Colegio Monte María",
			"colegio americano del sur":        "Colegio Americano del Sur",
			"colegio salesiano don bosco":      "Colegio Salesiano Don Bosco",
			"instituto austriaco guatemalteco": "Instituto Austriaco Guatemalteco",
			"colegio capouilliez":              "Colegio Capouilliez",
			"instituto belga guatemalteco":     "Instituto Belga Guatemalteco",
		},
		SpecificInstitutions: []SpecificInstitution{
			{"instituto rafael landivar", "Instituto Rafael Landívar"},
			{"liceo san carlos", "Liceo San Carlos"},
			{"colegio el valle", "Colegio El Valle"},
		},
		NonUniversity: map[string]bool{
			"valle colonial":         true,
			"valle colonial colegio": true,
			"colegio valle colonial": true,
		},
		InvalidResponses: map[string]bool{
			"no":                        true, "ninguno": true, "ninguna": true,
			"no estudio":                true, "no estoy estudiando": true,
			"no aplica":                 true, "n/a": true, "na": true, "no tengo": true,
			"ya me gradue":              true, "graduado": true, "terminado": true,
			"solo necesito informacion": true, "hola": true, "saludos": true,
			"diseno grafico":            true, "ingenieria": true,
			"certificado en":            true, "perito en": true,
			"maestria":                  true, "licenciatura": true,
		},
		InvalidPhrases: []string{
			"no estudio", "no estoy", "ninguno", "ya me gradue",
			"solo necesito", "trabajo en", "certificado en",
		},
		AcademicTitles: []string{
			"perito en", "perito contador", "perita en",
			"bachiller en", "bachillerato en",
			"tecnico en", "tecnica en",
			"licenciatura en", "licenciado en", "licenciada en",
			"maestria en", "master en",
			"ingeniero en", "ingeniera en", "ingenieria en",
			"arquitecto", "arquitecta", "arquitectura",
			"doctor en", "doctora en",
			"abogado", "abogada",
			"contador", "contadora",
		},
		NonInstitutions: []string{
			"instituto nacional de seguros",
			"instituto guatemalteco de seguridad social",
			"asociacion grupo ceiba",
			"cooperativa",
			"aden business school",
		},
		AmbiguousAcronyms: map[string]bool{
			"igs":       true, "mo": true, "itce": true, "insar": true,
			"altiplano": true, "ecc": true, "xd": true, "fase": true,
			"usar":      true, "aub no": true, "graduated from": true,
			"ex alumna": true, "educate": true,
		},
		AcronymWhitelist: map[string]bool{
			"usac": true, "url": true, "umg": true, "ufm": true, "uvg": true,
		},

		FormPrograms: []FormMapping{
			{"form lic administracion", ProgramBusinessAdmin},
			{"form lic marketing", ProgramIntlMarketing},
			{"form ing administracion", ProgramAdminScience},
			{"conoce la licenciatura en administracion", ProgramBusinessAdmin},
		},
		FormPlaceholder: ".elementor-form",
		PartnerMarkers:  []string{"uvg bridge", "bridge"},

		URLPrograms: []URLProgram{
			{ProgramBusinessAdmin, []string{
				"administracion-empresas",
				"licenciatura-administracion",
				"lic-administracion",
				"webinar-conoce-licenciatura-en-administracion",
				"conoce-la-licenciatura-en-administracion",
				"lic%2badministracion",
				"lic+administracion",
				"form-lic-administracion",
				"promoting-form-lic-administracion",
			}},
			{ProgramAdminScience, []string{
				"ingenieria-ciencia-administracion",
				"ingenieria-administracion",
				"ciencia-administracion",
				"ing-administracion",
				"ing%2badministracion",
				"ing+administracion",
				"form-ing-administracion",
				"promoting-form-ing-administracion",
			}},
			{ProgramIntlMarketing, []string{
				"marketing-analytics",
				"licenciatura-marketing",
				"international-marketing",
				"lic-marketing",
				"lic%2bmarketing",
				"lic+marketing",
				"form-lic-marketing",
				"promoting-form-lic-marketing",
			}},
			{ProgramCommunications, []string{
				"comunicacion-estrategica",
				"licenciatura-comunicacion",
				"comunicacion/",
				"lic-comunicacion",
			}},
			{ProgramMasters, []string{
				"maestria",
				"master-",
				"/master",
				"maestrias",
			}},
		},
		URLAlwaysOther: []string{
			"facebook.com",
			"fb.com",
			"instagram.com",
			"gracias-ok",
			"thank-you",
			"thank_you",
			"lead_ads_forms",
			"publishing_tools",
			"form_uvg_bridge",
		},
		BridgeDomain: "uvgbridge.gt",
		BridgeRootRE: regexp.MustCompile(`uvgbridge\.gt/?(\?|$)`),

		UniversityKeywords: []string{
			"universidad", "universitario", "universitaria",
			"facultad", "semestre", "postgrado", "posgrado",
			"profesorado", "licenciatura", "carrera universitaria",
		},
		GraduatedKeywords: []string{
			"graduado", "graduada", "gradue", "egresado", "egresada",
			"egrese", "ya termine", "finalice", "culmine", "ya sali",
		},
		DiversifiedKeywords: []string{
			"diversificado", "bachillerato", "bachiller",
			"perito", "magisterio", "secretariado",
		},
		BasicKeywords: []string{"basico", "basicos", "basica"},
		NumberWords: map[string]int{
			"primero": 1, "primer": 1,
			"segundo": 2,
			"tercero": 3, "tercer": 3,
			"cuarto":  4,
			"quinto":  5,
			"sexto":   6,
			"septimo": 7,
		},
		JunkTokens: []string{
			"asdf", "qwerty", "test", "prueba", "xxxx", "zzzz", "n/a",
		},
		GradeOptions: []string{
			"1ro. Básico", "2do. Básico", "3ro. Básico",
			"4to. Diversificado", "5to. Diversificado",
			"6to. Diversificado", "7mo. Diversificado",
			GradeUniversity, GradeGraduatedDiver, GradeGraduatedUniv,
			Unspecified,
		},

		Programs: []string{
			ProgramBusinessAdmin,
			ProgramAdminScience,
			ProgramIntlMarketing,
			ProgramCommunications,
			ProgramMasters,
		},
		CareerSlugs: map[string]string{
			"administracion_de_empresas":                     ProgramBusinessAdmin,
			"ciencia_de_la_administracion":                   ProgramAdminScience,
			"international_marketing_and_business_analytics": ProgramIntlMarketing,
			"comunicacion_estrategica":                       ProgramCommunications,
			"maestrias":                                      ProgramMasters,
			"maestria":                                       ProgramMasters,
		},
	}
}

// OrdinalLabel returns the canonical ordinal prefix for grade numbers 1-7.
func OrdinalLabel(n int) string {
	switch n {
	case 1:
		return "1ro."
	case 2:
		return "2do."
	case 3:
		return "3ro."
	case 4:
		return "4to."
	case 5:
		return "5to."
	case 6:
		return "6to."
	case 7:
		return "7mo."
	}
	return ""
}
