package db

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"jobconnect/models"
	"jobconnect/store"
)

func TestJobFilter(t *testing.T) {
	minRate, maxRate := 100.0, 300.0
	cook := bson.M{"$regex": "cook", "$options": "i"}

	cases := []struct {
		name string
		in   store.JobFilter
		want bson.M
	}{
		{"empty", store.JobFilter{}, bson.M{}},
		{"owner", store.JobFilter{OwnerID: "e1"}, bson.M{"userId": "e1"}},
		{"search", store.JobFilter{Query: "cook"}, bson.M{"$or": bson.A{
			bson.M{"title": cook},
			bson.M{"company": cook},
			bson.M{"description": cook},
			bson.M{"position": cook},
			bson.M{"skills": cook},
		}}},
		{"search is quoted", store.JobFilter{Location: "a.b (c)"},
			bson.M{"location": bson.M{"$regex": `a\.b \(c\)`, "$options": "i"}}},
		{"type and skill match whole value", store.JobFilter{Type: "full-time", Skill: "c++"}, bson.M{
			"type":   bson.M{"$regex": "^full-time$", "$options": "i"},
			"skills": bson.M{"$regex": `^c\+\+$`, "$options": "i"},
		}},
		{"rate range", store.JobFilter{MinRate: &minRate, MaxRate: &maxRate},
			bson.M{"rate": bson.M{"$gte": 100.0, "$lte": 300.0}}},
		{"min rate only", store.JobFilter{MinRate: &minRate},
			bson.M{"rate": bson.M{"$gte": 100.0}}},
		{"paging is not a filter", store.JobFilter{Skip: 20, Limit: 10}, bson.M{}},
	}
	for _, c := range cases {
		if got := jobFilter(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestMessageDocsCarryIncreasingSeq(t *testing.T) {
	docs := messageDocs([]*models.Message{
		{ID: "m1", ReceiverID: "e1", Type: "application"},
		{ID: "m2", ReceiverID: "u1", Type: "confirmation"},
	})
	if len(docs) != 2 {
		t.Fatalf("docs %v", docs)
	}

	var stored []bson.M
	for _, d := range docs {
		raw, err := bson.Marshal(d)
		if err != nil {
			t.Fatal(err)
		}
		var m bson.M
		if err := bson.Unmarshal(raw, &m); err != nil {
			t.Fatal(err)
		}
		stored = append(stored, m)
	}
	if stored[0]["_id"] != "m1" || stored[1]["receiverId"] != "u1" {
		t.Fatalf("message fields not inlined: %v", stored)
	}
	first, _ := stored[0]["seq"].(primitive.ObjectID)
	second, _ := stored[1]["seq"].(primitive.ObjectID)
	if first.IsZero() || first.Hex() >= second.Hex() {
		t.Fatalf("seq not increasing: %v then %v", first, second)
	}

	// decoding into the model drops seq
	raw, _ := bson.Marshal(docs[0])
	var msg models.Message
	if err := bson.Unmarshal(raw, &msg); err != nil || msg.ID != "m1" {
		t.Fatalf("decode %+v %v", msg, err)
	}
}
