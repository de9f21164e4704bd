package docpager_test

import (
	"context"
	"fmt"
	"log"

	"github.com/Alp4ka/docpager"
	"github.com/Alp4ka/docpager/memstore"
)

func ExamplePager_Find() {
	ctx := context.Background()
	store := memstore.New()

	people := []docpager.Document{
		{"_id": "p1", "name": "Alice", "age": 31},
		{"_id": "p2", "name": "Bob", "age": 25},
		{"_id": "p3", "name": "Carol", "age": 31},
		{"_id": "p4", "name": "Dave", "age": 40},
		{"_id": "p5", "name": "Eve", "age": 25},
	}
	for _, p := range people {
		if _, err := store.InsertOne(ctx, "people", p); err != nil {
			log.Fatal(err)
		}
	}

	pager := docpager.NewPager(store)
	q := docpager.Query{Limit: 2, Sort: docpager.Sort{docpager.Asc("age")}}

	for {
		page, err := pager.Find(ctx, "people", q)
		if err != nil {
			log.Fatal(err)
		}
		for _, doc := range page.Docs {
			fmt.Print(doc["name"], " ")
		}
		fmt.Println()

		if page.Cursor == "" {
			break
		}
		q.Cursor = page.Cursor
	}

	// Output:
	// Bob Eve
	// Alice Carol
	// Dave
}

func ExamplePager_Search() {
	ctx := context.Background()
	store := memstore.New()

	for _, name := range []string{"Neo", "Trinity", "Morpheus", "Niobe"} {
		if _, err := store.InsertOne(ctx, "crew", docpager.Document{"name": name}); err != nil {
			log.Fatal(err)
		}
	}

	pager := docpager.NewPager(store, docpager.WithLookahead())
	page, err := pager.Search(ctx, "crew", docpager.SearchInput{Q: "N", Limit: 2}, []string{"name"}, docpager.Sort{docpager.Asc("name")})
	if err != nil {
		log.Fatal(err)
	}

	for _, doc := range page.Docs {
		fmt.Println(doc["name"])
	}
	fmt.Println(page.Cursor == "")

	// Output:
	// Neo
	// Niobe
	// true
}
