package ingest

// TMDB numeric genre codes mapped to display labels. Discover results carry
// codes only; the catalog stores a single human-readable label per movie.
var genreLabels = map[int]string{
	28:    "Action",
	12:    "Adventure",
	16:    "Animation",
	35:    "Comedy",
	80:    "Crime",
	99:    "Documentary",
	18:    "Drama",
	10751: "Family",
	14:    "Fantasy",
	36:    "History",
	27:    "Horror",
	10402: "Music",
	9648:  "Mystery",
	10749: "Romance",
	878:   "Science Fiction",
	10770: "TV Movie",
	53:    "Thriller",
	10752: "War",
	37:    "Western",
}

const (
	// genreDefaultEmpty is used when a record carries no genre codes at all.
	genreDefaultEmpty = "Action"
	// genreDefaultUnknown is used when the first code is not in the table.
	genreDefaultUnknown = "Drama"
)

// genreLabel resolves a record's genre-code list to a single label using the
// first code.
func genreLabel(ids []int) string {
	if len(ids) == 0 {
		return genreDefaultEmpty
	}
	if label, ok := genreLabels[ids[0]]; ok {
		return label
	}
	return genreDefaultUnknown
}
