// Package styleprofile computes the deterministic statistical fingerprint
// of a message corpus.
//
// Compute is a pure function: it has no side effects and identical corpora
// produce bit-identical profiles across invocations. All map iteration is
// sorted before it can influence output ordering.
package styleprofile

import (
	"sort"
	"strings"
	"unicode"

	"github.com/scrypster/reverie/internal/lexicon"
	"github.com/scrypster/reverie/pkg/types"
)

// Profiler computes style profiles against a fixed lexicon.
type Profiler struct {
	lex *lexicon.Lexicon
}

// New creates a profiler. A nil lexicon selects the built-in defaults.
func New(lex *lexicon.Lexicon) *Profiler {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Profiler{lex: lex}
}

// topTokenLimit caps the significant-token list in the lexical stats.
const topTokenLimit = 20

// samplePhraseLimit caps per-topic and per-emotion sample phrase lists.
const samplePhraseLimit = 5

// Compute builds the full style profile for the corpus.
func (p *Profiler) Compute(corpus []types.Message) *types.StyleProfile {
	profile := &types.StyleProfile{
		TotalMessages: len(corpus),
	}
	if len(corpus) == 0 {
		return profile
	}

	profile.Length = p.lengthStats(corpus)
	profile.Punctuation = p.punctuationStats(corpus)
	profile.Lexical = p.lexicalStats(corpus)
	profile.Patterns = p.patternRates(corpus)
	profile.Personality = p.personalityMarkers(corpus)
	profile.Topics = p.topicStyles(corpus)
	profile.Emotions = p.emotionalLexicons(corpus)
	profile.Nostalgia = p.nostalgiaStats(corpus)
	profile.Questions = p.questionStyle(corpus)
	return profile
}

func (p *Profiler) lengthStats(corpus []types.Message) types.LengthStats {
	n := len(corpus)
	chars := make([]float64, n)
	words := make([]float64, n)
	var charSum, wordSum float64
	var veryShort, short, medium, long int

	for i, msg := range corpus {
		c := float64(len([]rune(msg.Content)))
		w := float64(len(strings.Fields(msg.Content)))
		chars[i] = c
		words[i] = w
		charSum += c
		wordSum += w

		switch {
		case c <= 10:
			veryShort++
		case c <= 30:
			short++
		case c <= 100:
			medium++
		default:
			long++
		}
	}

	return types.LengthStats{
		MeanChars:    charSum / float64(n),
		MedianChars:  median(chars),
		MeanWords:    wordSum / float64(n),
		MedianWords:  median(words),
		VeryShortPct: pct(veryShort, n),
		ShortPct:     pct(short, n),
		MediumPct:    pct(medium, n),
		LongPct:      pct(long, n),
	}
}

func (p *Profiler) punctuationStats(corpus []types.Message) types.PunctuationStats {
	n := len(corpus)
	var noTerminal, questions, exclamations, ellipses int

	for _, msg := range corpus {
		trimmed := strings.TrimSpace(msg.Content)
		if trimmed == "" {
			noTerminal++
			continue
		}
		last := trimmed[len(trimmed)-1]
		if last != '.' && last != '!' && last != '?' && !strings.HasSuffix(trimmed, "…") {
			noTerminal++
		}
		questions += strings.Count(msg.Content, "?")
		exclamations += strings.Count(msg.Content, "!")
		ellipses += strings.Count(msg.Content, "...") + strings.Count(msg.Content, "…")
	}

	return types.PunctuationStats{
		NoTerminalPct:          pct(noTerminal, n),
		QuestionsPerMessage:    float64(questions) / float64(n),
		ExclamationsPerMessage: float64(exclamations) / float64(n),
		EllipsesPerMessage:     float64(ellipses) / float64(n),
	}
}

func (p *Profiler) lexicalStats(corpus []types.Message) types.LexicalStats {
	counts := make(map[string]int)
	total := 0

	for _, msg := range corpus {
		for _, token := range Tokenize(msg.Content) {
			total++
			counts[token]++
		}
	}

	// Significant tokens: drop stopwords and very short tokens.
	type tc struct {
		token string
		count int
	}
	var significant []tc
	for token, count := range counts {
		if len(token) < 3 || p.lex.IsStopword(token) {
			continue
		}
		significant = append(significant, tc{token, count})
	}
	sort.Slice(significant, func(i, j int) bool {
		if significant[i].count != significant[j].count {
			return significant[i].count > significant[j].count
		}
		return significant[i].token < significant[j].token
	})
	if len(significant) > topTokenLimit {
		significant = significant[:topTokenLimit]
	}

	top := make([]types.TokenCount, len(significant))
	for i, s := range significant {
		top[i] = types.TokenCount{Token: s.token, Count: s.count}
	}

	richness := 0.0
	if total > 0 {
		richness = float64(len(counts)) / float64(total)
	}
	return types.LexicalStats{
		VocabularySize: len(counts),
		RichnessRatio:  richness,
		TopTokens:      top,
	}
}

func (p *Profiler) patternRates(corpus []types.Message) types.PatternRates {
	n := len(corpus)
	var emoji, laughter, allCaps, abbreviation, oneWord, question int

	for _, msg := range corpus {
		if containsEmoji(msg.Content) {
			emoji++
		}
		if lexicon.ContainsAny(msg.Content, p.lex.Laughter) {
			laughter++
		}
		if isAllCaps(msg.Content) {
			allCaps++
		}
		if messageHasAbbreviation(msg.Content, p.lex.Abbreviations) {
			abbreviation++
		}
		if len(strings.Fields(msg.Content)) == 1 {
			oneWord++
		}
		if strings.Contains(msg.Content, "?") {
			question++
		}
	}

	return types.PatternRates{
		EmojiPct:        pct(emoji, n),
		LaughterPct:     pct(laughter, n),
		AllCapsPct:      pct(allCaps, n),
		AbbreviationPct: pct(abbreviation, n),
		OneWordPct:      pct(oneWord, n),
		QuestionPct:     pct(question, n),
	}
}

func (p *Profiler) personalityMarkers(corpus []types.Message) types.PersonalityMarkers {
	n := len(corpus)
	enthusiasmHits := 0
	address := make(map[string]int)
	starters := make(map[string]int)
	agreement := make(map[string]int)

	for _, msg := range corpus {
		enthusiasmHits += strings.Count(msg.Content, "!")
		enthusiasmHits += lexicon.MatchCount(msg.Content, p.lex.Enthusiasm)

		tokens := Tokenize(msg.Content)
		tokenSet := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			tokenSet[t] = struct{}{}
		}
		for _, term := range p.lex.AddressTerms {
			if _, ok := tokenSet[term]; ok {
				address[term]++
			}
		}
		for _, term := range p.lex.Agreement {
			if _, ok := tokenSet[term]; ok {
				agreement[term]++
			}
		}
		lower := strings.ToLower(strings.TrimSpace(msg.Content))
		for _, starter := range p.lex.Starters {
			if strings.HasPrefix(lower, starter) {
				starters[starter]++
			}
		}
	}

	// Density normalized so 1 mark per message saturates at 1.0.
	score := float64(enthusiasmHits) / float64(n)
	if score > 1.0 {
		score = 1.0
	}

	return types.PersonalityMarkers{
		EnthusiasmScore:      score,
		AddressTerms:         topKeys(address, 5),
		ConversationStarters: topKeys(starters, 5),
		AgreementTokens:      topKeys(agreement, 5),
	}
}

func (p *Profiler) topicStyles(corpus []types.Message) []types.TopicStyle {
	categories := make([]types.TopicCategory, 0, len(p.lex.Topics))
	for cat := range p.lex.Topics {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	var styles []types.TopicStyle
	for _, cat := range categories {
		keywords := p.lex.Topics[cat]
		var samples []string
		var abbrevCount, terminalCount int
		for _, msg := range corpus {
			if !lexicon.ContainsAny(msg.Content, keywords) {
				continue
			}
			if len(samples) < samplePhraseLimit {
				samples = append(samples, msg.Content)
			}
			if messageHasAbbreviation(msg.Content, p.lex.Abbreviations) {
				abbrevCount++
			}
			trimmed := strings.TrimSpace(msg.Content)
			if trimmed != "" {
				last := trimmed[len(trimmed)-1]
				if last == '.' || last == '!' || last == '?' {
					terminalCount++
				}
			}
		}
		if len(samples) == 0 {
			continue
		}
		formality := "casual"
		if terminalCount > abbrevCount && terminalCount*2 >= len(samples) {
			formality = "formal"
		}
		styles = append(styles, types.TopicStyle{
			Topic:         cat,
			SamplePhrases: samples,
			Formality:     formality,
		})
	}
	return styles
}

func (p *Profiler) emotionalLexicons(corpus []types.Message) []types.EmotionalLexicon {
	tones := make([]types.EmotionalTone, 0, len(p.lex.Emotions))
	for tone := range p.lex.Emotions {
		tones = append(tones, tone)
	}
	sort.Slice(tones, func(i, j int) bool { return tones[i] < tones[j] })

	var lexicons []types.EmotionalLexicon
	for _, tone := range tones {
		keywords := p.lex.Emotions[tone]
		var samples []string
		for _, msg := range corpus {
			if !lexicon.ContainsAny(msg.Content, keywords) {
				continue
			}
			samples = append(samples, msg.Content)
			if len(samples) == samplePhraseLimit {
				break
			}
		}
		if len(samples) == 0 {
			continue
		}
		lexicons = append(lexicons, types.EmotionalLexicon{
			Tone:          tone,
			SamplePhrases: samples,
		})
	}
	return lexicons
}

func (p *Profiler) nostalgiaStats(corpus []types.Message) types.NostalgiaStats {
	n := len(corpus)
	hits := 0
	for _, msg := range corpus {
		if lexicon.ContainsAny(msg.Content, p.lex.MemoryReferences) {
			hits++
		}
	}
	rate := pct(hits, n)

	level := "low"
	switch {
	case rate >= 15:
		level = "high"
	case rate >= 5:
		level = "moderate"
	}
	return types.NostalgiaStats{
		ReferencePct: rate,
		Level:        level,
	}
}

func (p *Profiler) questionStyle(corpus []types.Message) types.QuestionStyle {
	n := len(corpus)
	var questions []string
	for _, msg := range corpus {
		if strings.Contains(msg.Content, "?") {
			questions = append(questions, msg.Content)
		}
	}

	style := types.QuestionStyle{
		QuestionPct: pct(len(questions), n),
	}

	var wordTotal int
	for _, q := range questions {
		wordTotal += len(strings.Fields(q))
		switch categorizeQuestion(q) {
		case "yes_no":
			style.YesNoCount++
		case "check_in":
			style.CheckInCount++
		case "choice":
			style.ChoiceCount++
		default:
			style.OpenEndedCount++
		}
	}

	style.Style = "direct"
	if len(questions) > 0 && float64(wordTotal)/float64(len(questions)) > 8 {
		style.Style = "elaborate"
	}
	return style
}

// categorizeQuestion buckets a question into yes/no, check-in, choice or
// open-ended by its leading words and connectives.
func categorizeQuestion(q string) string {
	lower := strings.ToLower(strings.TrimSpace(q))

	checkIns := []string{"how are you", "how's it going", "hows it going", "you ok", "are you ok", "everything ok", "how have you been"}
	for _, c := range checkIns {
		if strings.Contains(lower, c) {
			return "check_in"
		}
	}
	if strings.Contains(lower, " or ") {
		return "choice"
	}
	yesNoStarts := []string{"do ", "does ", "did ", "are ", "is ", "was ", "were ", "can ", "could ", "will ", "would ", "have ", "has ", "should "}
	for _, s := range yesNoStarts {
		if strings.HasPrefix(lower, s) {
			return "yes_no"
		}
	}
	return "open_ended"
}

// Tokenize lowercases text and splits it into alphanumeric runs.
// Exported because the retriever uses the same token boundaries when
// extracting search candidates.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

// containsEmoji reports whether text carries at least one emoji rune.
func containsEmoji(text string) bool {
	for _, r := range text {
		if (r >= 0x1F300 && r <= 0x1FAFF) ||
			(r >= 0x2600 && r <= 0x27BF) ||
			(r >= 0x1F1E6 && r <= 0x1F1FF) {
			return true
		}
	}
	return false
}

// isAllCaps reports whether text has at least 3 letters, all uppercase.
func isAllCaps(text string) bool {
	letters := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return letters >= 3
}

// messageHasAbbreviation reports whether any whole token is a known
// abbreviation.
func messageHasAbbreviation(text string, abbreviations []string) bool {
	for _, token := range Tokenize(text) {
		for _, abbr := range abbreviations {
			if token == abbr {
				return true
			}
		}
	}
	return false
}

// median returns the median of values. It sorts a copy.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// pct returns count/total as a percentage.
func pct(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// topKeys returns up to limit keys sorted by descending count then key.
func topKeys(counts map[string]int, limit int) []string {
	type kv struct {
		key   string
		count int
	}
	entries := make([]kv, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, kv{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.key
	}
	return keys
}
