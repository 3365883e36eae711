// Command xsearch runs searches against a document store from the
// command line. Sessions persist between invocations, so repeating a
// query pages through results and refining it keeps relevance ticks.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/willwinworld/xapian/internal/store"
	"github.com/willwinworld/xapian/pkg/expand"
	"github.com/willwinworld/xapian/pkg/index"
	"github.com/willwinworld/xapian/pkg/matcher"
	"github.com/willwinworld/xapian/pkg/query"
	"github.com/willwinworld/xapian/pkg/session"
	"github.com/willwinworld/xapian/pkg/snippet"
	"github.com/willwinworld/xapian/pkg/weight"
)

func main() {
	dbPath := flag.String("db", ":memory:", "SQLite database path")
	addPaths := flag.String("add", "", "Comma-separated files or directories to index")
	rawQuery := flag.String("q", "", "Query expression")
	sessionID := flag.String("session", "default", "Session id")
	pageSize := flag.Int("k", 10, "Results per page")
	opFlag := flag.String("op", "", "Default operator: or, and")
	schemeFlag := flag.String("scheme", "", "Weighting scheme: bm25, dlh, bool, or name:params")
	expandN := flag.Int("expand", 0, "Number of expansion terms to suggest from ticked documents")
	tickFlag := flag.String("tick", "", "Comma-separated docids to mark relevant")
	flag.Parse()

	// Step 1: open the store.
	st, err := store.NewSQLiteStoreWithDSN(*dbPath, 0)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	// Step 2: ingest new documents, if any.
	if *addPaths != "" {
		added, err := ingest(st, *addPaths)
		if err != nil {
			log.Fatalf("indexing: %v", err)
		}
		fmt.Printf("indexed %d documents\n", added)
	}

	// Step 3: load every stored document into the index.
	docs, err := st.ListDocuments()
	if err != nil {
		log.Fatalf("list documents: %v", err)
	}
	idx := index.New()
	for _, doc := range docs {
		idx.Add(doc.ID, doc.Text)
	}

	if *rawQuery == "" {
		fmt.Printf("%d documents in store\n", idx.DocCount())
		return
	}

	// Step 4: restore or create the session.
	state, stored, err := loadState(st, *sessionID)
	if err != nil {
		log.Fatalf("load session: %v", err)
	}
	if *opFlag != "" {
		op, err := query.ParseOp(*opFlag)
		if err != nil {
			log.Fatalf("bad -op: %v", err)
		}
		state.DefaultOp = op
	}
	scheme, err := resolveScheme(*schemeFlag, stored)
	if err != nil {
		log.Fatalf("bad scheme: %v", err)
	}

	// Step 5: classify the query against the session and apply the
	// transition it prescribes.
	parser := query.NewParser()
	qt, parsed, err := state.Evolve(*rawQuery, parser)
	if err != nil {
		fmt.Printf("query rejected (%s): %v\n", qt, err)
		saveState(st, state, scheme)
		st.Close()
		os.Exit(1)
	}
	switch qt {
	case query.SameQuery:
		state.Page++
		fmt.Printf("classification: %s; next page, %d ticks kept\n", qt, len(state.TickedDocs()))
	case query.ExtendedQuery:
		fmt.Printf("classification: %s; %d ticks kept, page reset\n", qt, len(state.TickedDocs()))
	case query.NewQuery:
		fmt.Printf("classification: %s; ticks cleared\n", qt)
	}

	// Step 6: run the matcher deep enough to cover the requested page.
	cfg := matcher.DefaultConfig()
	cfg.Op = state.DefaultOp
	m := matcher.New(idx, scheme, cfg)
	results := m.Run(parsed, (state.Page+1)*(*pageSize))

	// Step 7: apply new relevance ticks before expansion.
	if *tickFlag != "" {
		for _, field := range strings.Split(*tickFlag, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(field), 10, 32)
			if err != nil {
				log.Fatalf("bad -tick docid %q: %v", field, err)
			}
			state.Tick(uint32(id))
		}
	}

	// Step 8: print the page with highlighted excerpts.
	printPage(idx, parsed, results, state, *pageSize)

	// Step 9: suggest expansion terms from the ticked documents.
	if *expandN > 0 {
		suggestTerms(idx, parsed, state, *expandN)
	}

	// Step 10: persist the session for the next invocation.
	if err := saveState(st, state, scheme); err != nil {
		log.Fatalf("save session: %v", err)
	}
}

// ingest walks the given files and directories and stores each regular
// file as one document. IDs continue after the highest stored id.
func ingest(st store.Storer, paths string) (int, error) {
	docs, err := st.ListDocuments()
	if err != nil {
		return 0, err
	}
	var nextID uint32 = 1
	if len(docs) > 0 {
		nextID = docs[len(docs)-1].ID + 1
	}

	added := 0
	for _, p := range strings.Split(paths, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		err := filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			now := time.Now().UnixMilli()
			doc := &store.Document{
				ID:        nextID,
				Text:      string(data),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := st.PutDocument(doc); err != nil {
				return err
			}
			nextID++
			added++
			return nil
		})
		if err != nil {
			return added, err
		}
	}
	return added, nil
}

// loadState restores session state from the store, or starts fresh.
// The stored record comes back too so the caller can read the scheme.
func loadState(st store.Storer, id string) (*session.State, *store.Session, error) {
	stored, err := st.GetSession(id)
	if err != nil {
		return nil, nil, err
	}
	state := session.New(id)
	if stored == nil {
		return state, nil, nil
	}

	state.RawQuery = stored.RawQuery
	state.Terms = query.NewTermSet(stored.Terms...)
	for _, docID := range stored.Ticked {
		state.Tick(docID)
	}
	if op, err := query.ParseOp(stored.DefaultOp); err == nil {
		state.DefaultOp = op
	}
	state.Page = stored.Page
	return state, stored, nil
}

// saveState writes the session back, including the scheme so the next
// invocation ranks the same way.
func saveState(st store.Storer, state *session.State, scheme weight.Scheme) error {
	return st.PutSession(&store.Session{
		ID:        state.ID,
		RawQuery:  state.RawQuery,
		Terms:     state.Terms.Terms(),
		Ticked:    state.TickedDocs(),
		DefaultOp: state.DefaultOp.String(),
		Page:      state.Page,
		Scheme:    scheme.Name(),
		SchemeArg: scheme.Serialize(),
		UpdatedAt: time.Now().UnixMilli(),
	})
}

// resolveScheme picks the weighting scheme: the flag wins, then the
// scheme stored with the session, then BM25 defaults. A flag of the
// form name:params passes params through the scheme's Unserialize.
func resolveScheme(flagVal string, stored *store.Session) (weight.Scheme, error) {
	reg := weight.DefaultRegistry()

	if flagVal != "" {
		name, params, found := strings.Cut(flagVal, ":")
		if found {
			return reg.Unserialize(name, params)
		}
		s, ok := reg.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown scheme %q", name)
		}
		return s, nil
	}

	if stored != nil && stored.Scheme != "" {
		return reg.Unserialize(stored.Scheme, stored.SchemeArg)
	}

	return weight.DefaultBM25(), nil
}

// printPage shows one page of results with match highlighting.
func printPage(idx *index.Index, parsed query.Parsed, results []matcher.Result, state *session.State, pageSize int) {
	start := state.Page * pageSize
	if start >= len(results) {
		fmt.Printf("no results on page %d (%d total)\n", state.Page+1, len(results))
		return
	}
	end := start + pageSize
	if end > len(results) {
		end = len(results)
	}

	h := snippet.New(parsed)
	fmt.Printf("page %d, results %d-%d of %d\n", state.Page+1, start+1, end, len(results))
	for i := start; i < end; i++ {
		r := results[i]
		line := fmt.Sprintf("%d. doc %d (%.4f)", i+1, r.DocID, r.Score)
		if state.IsTicked(r.DocID) {
			line += " *"
		}
		fmt.Println(line)
		if info, ok := idx.Doc(r.DocID); ok {
			fmt.Printf("   %s\n", excerpt(info.Text, h, 160))
		}
	}
}

// excerpt returns a window of text around the first highlight hit,
// widened to word boundaries, with the hits marked.
func excerpt(text string, h *snippet.Highlighter, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	spans := h.Spans(text)

	start := 0
	if len(spans) > 0 && spans[0].Start > width/4 {
		start = spans[0].Start - width/4
		for start > 0 && text[start-1] != ' ' {
			start--
		}
	}
	end := start + width
	if end >= len(text) {
		end = len(text)
	} else {
		for end > start && text[end-1] != ' ' {
			end--
		}
	}

	out := h.Render(text[start:end], "[", "]")
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}

// suggestTerms prints expansion candidates drawn from the session's
// ticked documents.
func suggestTerms(idx *index.Index, parsed query.Parsed, state *session.State, n int) {
	ticked := state.TickedDocs()
	if len(ticked) == 0 {
		fmt.Println("no ticked documents to expand from")
		return
	}

	e := expand.NewExpander(idx)
	suggestions := e.Suggest(ticked, expand.ExcludeTerms(parsed), n)
	if len(suggestions) == 0 {
		fmt.Println("no expansion terms found")
		return
	}

	fmt.Println("expansion terms:")
	for _, s := range suggestions {
		fmt.Printf("   %s (%.4f)\n", s.Term, s.Weight)
	}
}
