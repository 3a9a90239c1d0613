package crypto

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

var nameAdjectives = []string{
	"Amber", "Brisk", "Calm", "Dapper", "Eager", "Fabled", "Gentle", "Hidden",
	"Icy", "Jolly", "Keen", "Lucid", "Mellow", "Nimble", "Oaken", "Placid",
	"Quiet", "Rustic", "Silent", "Tidy", "Upbeat", "Velvet", "Witty", "Zesty",
}

var nameAnimals = []string{
	"Badger", "Crane", "Dingo", "Egret", "Falcon", "Gecko", "Heron", "Ibis",
	"Jackal", "Koala", "Lemur", "Marten", "Newt", "Ocelot", "Puffin", "Quokka",
	"Raven", "Stoat", "Tapir", "Urchin", "Vole", "Walrus", "Yak", "Zebu",
}

// SenderName maps a public identifier to a stable pseudonym such as
// "Quiet Heron". Internal boards show it so posts from one identity epoch can
// be followed without revealing who wrote them.
func SenderName(id string) string {
	sum := blake2b.Sum256([]byte(id))
	a := binary.BigEndian.Uint32(sum[0:4]) % uint32(len(nameAdjectives))
	n := binary.BigEndian.Uint32(sum[4:8]) % uint32(len(nameAnimals))
	return nameAdjectives[a] + " " + nameAnimals[n]
}
