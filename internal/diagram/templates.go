package diagram

var templates = map[Kind]string{
	KindFlowchart: `flowchart TD
    A[Start] --> B{Is it working?}
    B -->|Yes| C[Great!]
    B -->|No| D[Debug]
    D --> B
    C --> E[End]
`,
	KindSequence: `sequenceDiagram
    participant Alice
    participant Bob
    Alice->>Bob: Hello Bob, how are you?
    Bob-->>Alice: Great!
    Alice-)Bob: See you later!
`,
	KindClass: `classDiagram
    class Animal {
        +String name
        +int age
        +makeSound()
    }
    class Dog {
        +fetch()
    }
    class Cat {
        +climb()
    }
    Animal <|-- Dog
    Animal <|-- Cat
`,
	KindState: `stateDiagram-v2
    [*] --> Idle
    Idle --> Running : start
    Running --> Paused : pause
    Paused --> Running : resume
    Running --> Idle : stop
    Idle --> [*]
`,
	KindER: `erDiagram
    CUSTOMER ||--o{ ORDER : places
    ORDER ||--|{ LINE_ITEM : contains
    CUSTOMER {
        string name
        string email
    }
    ORDER {
        int id
        date created
    }
`,
	KindGantt: `gantt
    title Project Plan
    dateFormat YYYY-MM-DD
    section Design
    Research      :a1, 2024-01-01, 7d
    Prototype     :after a1, 5d
    section Build
    Implementation :2024-01-15, 14d
    Testing        :7d
`,
	KindPie: `pie title Pets adopted by volunteers
    "Dogs" : 386
    "Cats" : 85
    "Rats" : 15
`,
	KindMindmap: `mindmap
  root((Project))
    Goals
      Ship v1
      Gather feedback
    Team
      Design
      Engineering
`,
	KindTimeline: `timeline
    title History of the project
    2021 : Idea
    2022 : Prototype : First users
    2023 : Public release
`,
	KindQuadrant: `quadrantChart
    title Reach and engagement
    x-axis Low Reach --> High Reach
    y-axis Low Engagement --> High Engagement
    quadrant-1 Expand
    quadrant-2 Promote
    quadrant-3 Re-evaluate
    quadrant-4 Improve
    Campaign A: [0.3, 0.6]
    Campaign B: [0.45, 0.23]
`,
	KindGitGraph: `gitGraph
    commit
    branch develop
    checkout develop
    commit
    commit
    checkout main
    merge develop
    commit
`,
	KindC4: `C4Context
    title System Context
    Person(user, "User", "A user of the system")
    System(app, "Application", "Delivers the features")
    Rel(user, app, "Uses")
`,
	KindSankey: `sankey-beta
Source,Process,10
Process,Output A,6
Process,Output B,4
`,
	KindBlock: `block-beta
    columns 3
    a["Input"] b["Process"] c["Output"]
    a --> b
    b --> c
`,
	KindJourney: `journey
    title My working day
    section Go to work
      Make tea: 5: Me
      Go upstairs: 3: Me
    section Go home
      Go downstairs: 5: Me
`,
}

// Template returns the starter source for a kind. Unknown kinds get the
// flowchart template.
func Template(k Kind) string {
	if t, ok := templates[k]; ok {
		return t
	}
	return templates[DefaultKind]
}
